package models

import "time"

type Announcement struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Date      Date      `json:"date"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
