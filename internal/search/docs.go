package search

import (
	"encoding/json"
	"time"

	"github.com/Tauqir1234/Festio/internal/models"
)

type EventDoc struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Venue           string    `json:"venue"`
	Organizer       string    `json:"organizer"`
	Category        string    `json:"category"`
	Status          string    `json:"status"`
	Date            time.Time `json:"date"`
	RegisteredCount int       `json:"registered_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func BuildEventDoc(e models.Event, registeredCount int) ([]byte, error) {
	return json.Marshal(EventDoc{
		Title:           e.Title,
		Description:     e.Description,
		Venue:           e.Venue,
		Organizer:       e.Organizer,
		Category:        string(e.Category),
		Status:          string(e.Status),
		Date:            e.Date,
		RegisteredCount: registeredCount,
		UpdatedAt:       e.UpdatedAt,
	})
}
