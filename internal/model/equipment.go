package model

import "time"

// Equipment represents a single tracked item. Every item has exactly one
// current holder at all times.
type Equipment struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HolderID    int64     `json:"holder_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
	HolderName   string `json:"holder_name,omitempty"`
}

// Category groups equipment for browsing.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
