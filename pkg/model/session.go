package model

import "time"

type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresIn int       `json:"expires_in_seconds"`
}
