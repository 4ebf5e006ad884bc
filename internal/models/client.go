package models

import "time"

// Client is an API consumer paired with the household PIN.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
