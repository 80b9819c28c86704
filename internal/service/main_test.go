package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/notifications"
	"chronicle/internal/repository"
	"chronicle/internal/testutil"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event notifications.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(ev notifications.Event) bool { return ev.Type == eventType })
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db       *gorm.DB
	clock    *fakeClock
	events   *mockPublisher
	images   *ImageService
	posts    repository.PostRepository
	groups   repository.GroupRepository
	users    repository.UserRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository

	feed     *FeedService
	post     *PostService
	comment  *CommentService
	follow   *FollowService
	auth     *AuthService
	groupSvc *GroupService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		clock:    newFakeClock(),
		events:   new(mockPublisher),
		images:   NewImageService(&config.Config{MediaRoot: t.TempDir(), MaxImageBytes: 1 << 20}),
		posts:    repository.NewPostRepository(db),
		groups:   repository.NewGroupRepository(db),
		users:    repository.NewUserRepository(db),
		comments: repository.NewCommentRepository(db),
		follows:  repository.NewFollowRepository(db),
	}
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.feed = NewFeedService(f.posts, f.groups, f.users, f.follows, 10, 20*time.Second,
		cache.WithClock(f.clock.Now))
	f.post = NewPostService(f.posts, f.groups, f.comments, f.images, f.events)
	f.comment = NewCommentService(f.comments, f.posts, f.events)
	f.follow = NewFollowService(f.follows, f.users, f.events)
	f.auth = NewAuthService(f.users)
	f.auth.cost = 4
	f.groupSvc = NewGroupService(f.groups)
	return f
}

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var postFilterAll = repository.PostFilter{}
