package domain

// Actor is an authenticated identity plus the claims authorization
// decisions need. SectorID is set for technicians and names the sector
// they serve.
type Actor struct {
	ID       string
	Role     Role
	SectorID *string
}
