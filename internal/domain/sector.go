package domain

import "time"

// Sector is an organizational routing unit tickets are assigned to.
type Sector struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
