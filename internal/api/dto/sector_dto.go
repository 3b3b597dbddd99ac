package dto

import "time"

// CreateSectorRequest payload.
type CreateSectorRequest struct {
	Name string `json:"name"`
}

// SectorResponse is the sector view.
type SectorResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
