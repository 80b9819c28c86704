// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"strings"
	"time"

	"chronicle/internal/models"
	"chronicle/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Factory builds domain entities with fake content and persists them.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker

	passwordHash string
	usernames    map[string]bool
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:        db,
		opts:      opts,
		faker:     gofakeit.New(seed),
		usernames: make(map[string]bool),
	}
}

// hash computes the shared password hash once per factory.
func (f *Factory) hash() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.passwordHash = string(h)
	return f.passwordHash, nil
}

// username returns a fresh name that passes signup validation.
func (f *Factory) username() string {
	for {
		base := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
				return r
			}
			return -1
		}, f.faker.Username())
		name := fmt.Sprintf("%s%d", base, f.faker.Number(100, 999))
		if len(name) > 30 {
			name = name[len(name)-30:]
		}
		if validation.ValidateUsername(name) != nil || f.usernames[strings.ToLower(name)] {
			continue
		}
		f.usernames[strings.ToLower(name)] = true
		return name
	}
}

// CreateUser persists a fake user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.hash()
	if err != nil {
		return nil, err
	}

	username := f.username()
	user := &models.User{
		Username:  username,
		Email:     strings.ToLower(username) + "@example.com",
		Password:  hash,
		FirstName: f.faker.FirstName(),
		LastName:  f.faker.LastName(),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs an unsaved post by author, optionally in group, dated
// somewhere in the last opts.MaxDays days.
func (f *Factory) BuildPost(author *models.User, group *models.Group, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	now := time.Now()

	post := &models.Post{
		Text:      f.faker.Paragraph(1, 3, 12, "\n"),
		AuthorID:  author.ID,
		CreatedAt: f.faker.DateRange(now.AddDate(0, 0, -maxDays), now),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost persists a fake post.
func (f *Factory) CreatePost(author *models.User, group *models.Group, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, group, overrides...)
	if err := f.db.Omit("Author", "Group").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists posts in batches.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Omit("Author", "Group").CreateInBatches(posts, 100).Error
}

// CreateComment persists a fake comment on post, dated after the post.
func (f *Factory) CreateComment(post *models.Post, author *models.User) (*models.Comment, error) {
	created := post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
	if created.After(time.Now()) {
		created = time.Now()
	}
	comment := &models.Comment{
		PostID:    post.ID,
		AuthorID:  author.ID,
		Text:      f.faker.Sentence(f.faker.Number(3, 15)),
		CreatedAt: created,
	}
	if err := f.db.Omit("Post", "Author").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// Follow persists a follow edge. Self-follows and existing edges are skipped.
func (f *Factory) Follow(user, author *models.User) (bool, error) {
	if user.ID == author.ID {
		return false, nil
	}
	res := f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Omit("User", "Author").
		Create(&models.Follow{UserID: user.ID, AuthorID: author.ID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// pick returns a random index below n.
func (f *Factory) pick(n int) int {
	return f.faker.Number(0, n-1)
}
