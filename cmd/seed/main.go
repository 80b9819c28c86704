// Command main runs the database seeder for Chronicle.
package main

import (
	"flag"
	"log"

	"chronicle/internal/config"
	"chronicle/internal/database"
	"chronicle/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	follows := flag.Int("follows", 5, "Follow attempts per user")
	comments := flag.Int("comments", 2, "Comments per post")
	maxDays := flag.Int("days", 90, "Spread post dates over this many days")
	shouldClean := flag.Bool("clean", false, "Delete existing data before seeding")
	fast := flag.Bool("fast", true, "Hash the shared password at minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Seed(db, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		FollowsPerUser:  *follows,
		CommentsPerPost: *comments,
		MaxDays:         *maxDays,
		ShouldClean:     *shouldClean,
		FastHash:        *fast,
		RandSeed:        *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! groups=%d users=%d posts=%d follows=%d comments=%d",
		summary.Groups, summary.Users, summary.Posts, summary.Follows, summary.Comments)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
