package main

import (
	"flag"
	"log"
	"time"

	"medwatch/internal/database"
	"medwatch/internal/models"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// Simple utility to seed the database with a sample campaign and posts.
// In a production system, campaigns and posts arrive through the collection
// connectors, not this script.

func main() {
	var campaignName = flag.String("name", "Vaccine Misinformation Watch", "Name of the seeded campaign")
	flag.Parse()

	log.Printf("🌱 MedWatch Database Seeder")
	log.Printf("===========================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database
	dbConfig := database.LoadConfig()
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	campaign := seedCampaign(*campaignName)
	seedPosts(campaign)

	log.Println("✅ Database seeding completed")
	log.Println("")
	log.Println("🧪 Quick Test Commands:")
	log.Println("=======================")
	log.Printf("   curl -X POST http://localhost:8080/api/campaigns/%s/analysis", campaign.ID)
	log.Printf("   curl http://localhost:8080/api/campaigns/%s/report", campaign.ID)
}

func seedCampaign(name string) *models.Campaign {
	var existing models.Campaign
	if err := database.DB.Where("name = ?", name).First(&existing).Error; err == nil {
		log.Printf("Campaign %q already exists, reusing it", name)
		return &existing
	}

	campaign := &models.Campaign{
		Name:               name,
		Keywords:           pq.StringArray{"vaccine", "mrna", "side effects"},
		Platforms:          pq.StringArray{string(models.PlatformTwitter), string(models.PlatformReddit)},
		FakeGradeThreshold: 4,
		IsActive:           true,
	}
	if err := database.DB.Create(campaign).Error; err != nil {
		log.Fatal("Failed to seed campaign:", err)
	}

	log.Printf("🌱 Seeded campaign: %s (%s)", campaign.Name, campaign.ID)
	return campaign
}

func seedPosts(campaign *models.Campaign) {
	now := time.Now().UTC()
	posts := []models.Post{
		{
			CampaignID:  campaign.ID,
			Platform:    models.PlatformTwitter,
			Author:      "health_skeptic_42",
			Text:        "BREAKING: the mRNA vaccine changes your DNA permanently. Doctors won't tell you this!",
			URL:         "https://twitter.com/health_skeptic_42/status/1001",
			PublishedAt: now.Add(-48 * time.Hour),
			LikesCount:  340,
			SharesCount: 120,
		},
		{
			CampaignID:  campaign.ID,
			Platform:    models.PlatformReddit,
			Author:      "evidence_please",
			Text:        "Large cohort study finds no association between mRNA vaccination and cardiac events in adults under 40.",
			URL:         "https://reddit.com/r/medicine/comments/abc123",
			PublishedAt: now.Add(-24 * time.Hour),
			LikesCount:  85,
		},
		{
			CampaignID:  campaign.ID,
			Platform:    models.PlatformTwitter,
			Author:      "wellness_mama_x",
			Text:        "My cousin got the shot and now has chronic fatigue. Big pharma hides the real side effects. Do your own research!",
			URL:         "https://twitter.com/wellness_mama_x/status/1002",
			PublishedAt: now.Add(-12 * time.Hour),
			LikesCount:  56,
			SharesCount: 14,
		},
	}

	for i := range posts {
		var count int64
		database.DB.Model(&models.Post{}).Where("url = ?", posts[i].URL).Count(&count)
		if count > 0 {
			continue
		}
		if err := database.DB.Create(&posts[i]).Error; err != nil {
			log.Printf("⚠️  Failed to seed post %s: %v", posts[i].URL, err)
			continue
		}
	}

	log.Printf("🌱 Seeded %d sample posts", len(posts))
}
