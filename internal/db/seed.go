package db

import (
	"log/slog"
	"time"

	"github.com/Tauqir1234/Festio/internal/models"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

// Seed inserts a handful of sample events so a fresh deployment has
// something to browse. Skipped when any event already exists.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Event{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		slog.Info("seed skipped, events already present", "count", count)
		return nil
	}

	now := time.Now()
	nextWeek := now.AddDate(0, 0, 7)
	deadline := now.AddDate(0, 0, 5)

	return db.Transaction(func(tx *gorm.DB) error {
		events := []models.Event{
			{
				Title:        "Intro to Distributed Systems",
				Description:  "Guest lecture on consensus and replication.",
				Venue:        "Lecture Hall B",
				Organizer:    "CS Department",
				ContactEmail: "cs-events@campus.edu",
				Date:         nextWeek,
				StartTime:    "14:00",
				EndTime:      "16:00",
				Category:     models.CategoryAcademic,
				Status:       models.EventUpcoming,
				MaxCapacity:  intPtr(120),
			},
			{
				Title:                "Spring Fest Opening Night",
				Description:          "Music, food stalls and the annual talent show.",
				Venue:                "Main Quad",
				Organizer:            "Student Union",
				ContactEmail:         "union@campus.edu",
				Date:                 nextWeek.AddDate(0, 0, 3),
				StartTime:            "18:00",
				Category:             models.CategoryFest,
				Status:               models.EventUpcoming,
				MaxCapacity:          intPtr(500),
				RegistrationDeadline: &deadline,
			},
			{
				Title:       "Morning Yoga",
				Description: "Open session, mats provided.",
				Venue:       "Gym Annex",
				Organizer:   "Sports Office",
				Date:        nextWeek.AddDate(0, 0, 1),
				StartTime:   "07:00",
				EndTime:     "08:00",
				Category:    models.CategorySports,
				Status:      models.EventUpcoming,
			},
		}
		for i := range events {
			if err := tx.Create(&events[i]).Error; err != nil {
				return err
			}
		}
		slog.Info("sample events inserted", "count", len(events))
		return nil
	})
}
