package seed

import (
	"fmt"
	"log"

	"chronicle/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers        int
	NumPosts        int
	FollowsPerUser  int
	CommentsPerPost int
	MaxDays         int
	ShouldClean     bool
	// FastHash hashes the shared password at bcrypt.MinCost.
	FastHash bool
	// RandSeed fixes the fake data generator; 0 means random.
	RandSeed int64
}

// Summary counts the rows a run created.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Follows  int
	Comments int
}

// Seed populates db with built-in groups and fake users, posts, follows and comments.
func Seed(db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	defs, err := BuiltInGroups()
	if err != nil {
		return nil, err
	}
	groups, err := Groups(db, defs)
	if err != nil {
		return nil, fmt.Errorf("failed to create groups: %w", err)
	}
	summary := &Summary{Groups: len(groups)}
	log.Printf("✓ %d groups available", len(groups))

	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users created", len(users))
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.pick(len(users))]
		// Roughly one post in four is left outside any group.
		var group *models.Group
		if len(groups) > 0 && f.pick(4) != 0 {
			group = groups[f.pick(len(groups))]
		}
		posts = append(posts, f.BuildPost(author, group))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)
	log.Printf("✓ %d posts created", len(posts))

	if len(users) > 1 {
		for _, user := range users {
			for i := 0; i < opts.FollowsPerUser; i++ {
				created, err := f.Follow(user, users[f.pick(len(users))])
				if err != nil {
					return nil, fmt.Errorf("failed to create follows: %w", err)
				}
				if created {
					summary.Follows++
				}
			}
		}
	}
	log.Printf("✓ %d follows created", summary.Follows)

	for _, post := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			if _, err := f.CreateComment(post, users[f.pick(len(users))]); err != nil {
				return nil, fmt.Errorf("failed to create comments: %w", err)
			}
			summary.Comments++
		}
	}
	log.Printf("✓ %d comments created", summary.Comments)

	log.Println("🎉 Database seeding completed successfully!")
	return summary, nil
}

// ClearAll deletes every row the seeder can create, children first.
func ClearAll(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.Comment{},
		&models.Follow{},
		&models.Post{},
		&models.Group{},
		&models.User{},
	} {
		if err := all.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
