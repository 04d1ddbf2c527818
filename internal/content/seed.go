package content

import (
	"fmt"

	"mediahub/pkg/domain"
)

const (
	AdminID       = "admin-user"
	AdminName     = "admin"
	AdminEmail    = "admin"
	AdminPassword = "123"

	seedPrice = 150
)

var seedTitles = []string{
	"Uncensored: Backstage at the Awards",
	"Private Bedroom Session - Full 4K",
	"Late Night VIP Room [Exclusive]",
	"Boudoir Masterclass: Tease & Reveal",
	"Cape Town Model: Beach Photoshoot BTS",
	"Johanna's Private Cam Recording",
	"The Red Room: Uncut Scenes",
	"Luxury Escort Diaries: Dubai Trip",
	"Sultry Jazz Lounge Performance",
	"Morning Routine - Nothing to Hide",
	"Shower Thoughts with Lexi",
	"Studio 69: The Casting Tape",
}

var seedCreators = []string{
	"Candy V.", "Roxy Red", "Mistress J", "David L.",
	"Velvet Rooms", "ArtHouse XXX", "VogueCam", "IndieLens",
}

const seedDescription = "Exclusive access to my latest content session. Join my VIP fan club for the full uncensored experience. 18+ Only."

func seedMedia() []domain.MediaItem {
	items := make([]domain.MediaItem, 0, len(seedTitles))
	for i, title := range seedTitles {
		item := domain.MediaItem{
			ID:            fmt.Sprintf("seed-%d", i),
			UserID:        AdminID,
			Title:         title,
			Description:   seedDescription,
			ThumbnailURL:  fmt.Sprintf("https://picsum.photos/seed/%d/600/400", i+220),
			MediaType:     domain.MediaVideo,
			Duration:      fmt.Sprintf("%d:%02d", (i*7)%40+5, (i*13)%59),
			Views:         int64(5000 + (i*37813)%150000),
			CreatorName:   seedCreators[i%len(seedCreators)],
			CreatorAvatar: fmt.Sprintf("https://picsum.photos/seed/%d/50/50", i+55),
			Tags:          []string{"Glamour", "Uncensored", "4K", "SouthAfrican", "Verified"},
			IsPremium:     i%3 != 0,
			UploadedAt:    fmt.Sprintf("%d days ago", i%10+1),
		}
		if item.IsPremium {
			price := float64(seedPrice)
			item.Price = &price
		}
		items = append(items, item)
	}
	return items
}

func seedTalent() []domain.TalentProfile {
	return []domain.TalentProfile{
		{
			ID:           "t1",
			Name:         "Aria Thorne",
			Title:        "Glamour Model & Performer",
			Location:     "Sandton, Johannesburg",
			Rating:       4.9,
			ReviewCount:  128,
			HourlyRate:   4500,
			ImageURL:     "https://picsum.photos/seed/user22/400/500",
			Verified:     true,
			Online:       true,
			Tags:         []string{"Photoshoot", "Private Events", "VIP Hosting"},
			Availability: domain.AvailableNow,
		},
		{
			ID:           "t2",
			Name:         "Liam K.",
			Title:        "Male Entertainer",
			Location:     "Camps Bay, Cape Town",
			Rating:       4.8,
			ReviewCount:  93,
			HourlyRate:   3500,
			ImageURL:     "https://picsum.photos/seed/user33/400/500",
			Verified:     true,
			Online:       false,
			Tags:         []string{"Bachelor Parties", "Modeling", "Escort"},
			Availability: domain.AvailableThisWeek,
		},
	}
}

func seedNotifications() []domain.Notification {
	return []domain.Notification{
		{ID: "n1", UserID: domain.GuestUserID, Type: domain.NotifySystem, Message: "Welcome to Mzansis Best Ass! Please verify your age to view explicit content.", CreatedAt: "2 mins ago"},
		{ID: "n2", UserID: domain.GuestUserID, Type: domain.NotifyUpload, Message: "Roxy Red uploaded a new exclusive video.", CreatedAt: "1 hour ago"},
	}
}

func defaultSettings() domain.SiteSettings {
	featured := "seed-0"
	return domain.SiteSettings{FeaturedMediaID: &featured}
}

// ensureAdmin appends the admin account, or resets the first admin's credentials.
func (s *Store) ensureAdmin() {
	for i := range s.users {
		if s.users[i].Role != domain.RoleAdmin {
			continue
		}
		s.users[i].Name = AdminName
		s.users[i].Email = AdminEmail
		s.users[i].Password = AdminPassword
		return
	}
	s.users = append(s.users, domain.User{
		ID:        AdminID,
		Name:      AdminName,
		Email:     AdminEmail,
		Role:      domain.RoleAdmin,
		Verified:  true,
		AvatarURL: GenerateAvatar(AdminName),
		Password:  AdminPassword,
	})
}
