package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// SectorService manages the sector directory. Admin-managed reference data.
type SectorService struct {
	sectors repository.SectorRepository
}

// NewSectorService builds the service.
func NewSectorService(sectors repository.SectorRepository) *SectorService {
	return &SectorService{sectors: sectors}
}

// Create adds a sector to the directory.
func (s *SectorService) Create(ctx context.Context, name string) (*domain.Sector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	sector := &domain.Sector{Name: name}
	if err := s.sectors.Create(ctx, sector); err != nil {
		return nil, apperrors.MapError(err)
	}
	return sector, nil
}

// Get fetches a sector by id.
func (s *SectorService) Get(ctx context.Context, id string) (*domain.Sector, error) {
	sector, err := s.sectors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sector", map[string]any{"sector_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return sector, nil
}

// List returns the full directory.
func (s *SectorService) List(ctx context.Context) ([]domain.Sector, error) {
	sectors, err := s.sectors.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sectors, nil
}
