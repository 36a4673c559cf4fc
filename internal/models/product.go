package models

import "time"

// Product is a catalog item that reviews are attached to.
type Product struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
