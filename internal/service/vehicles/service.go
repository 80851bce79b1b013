package vehicles

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/repository"
	postgresrepo "github.com/kirinyoku/park-go/internal/repository/postgres"
)

type Config struct {
	DefaultPage int
	MaxPage     int
}

type Service struct {
	store *postgresrepo.Store
	cfg   Config
}

func New(store *postgresrepo.Store, cfg Config) *Service {
	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 10
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 100
	}

	return &Service{store: store, cfg: cfg}
}

// Register creates a vehicle for a user.
//
// Returns:
//   - error: vehicles.ErrPlateConflict if the plate is already registered.
//   - error: vehicles.ErrInvalidType / ErrInvalidSize on unknown attributes.
func (s *Service) Register(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	const op = "service.vehicles.Register"

	if !ValidType(v.Type) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidType)
	}

	if !ValidSize(v.Size) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSize)
	}

	created, err := s.store.Vehicles().Create(ctx, v)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrPlateConflict)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

// ListMine lists the caller's vehicles with pagination and optional search.
func (s *Service) ListMine(
	ctx context.Context,
	userID int64,
	search string,
	page, limit int,
) ([]domain.Vehicle, int64, error) {
	const op = "service.vehicles.ListMine"

	if page <= 0 {
		page = 1
	}

	if limit <= 0 {
		limit = s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		limit = s.cfg.MaxPage
	}

	out, total, err := s.store.Vehicles().ListByUser(ctx, userID, search, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return out, total, nil
}

// Update writes the mutable attributes of a vehicle owned by userID.
//
// Returns:
//   - error: vehicles.ErrVehicleNotFound if the vehicle does not exist or
//     belongs to another user.
//   - error: vehicles.ErrPlateConflict if the new plate is already registered.
func (s *Service) Update(ctx context.Context, userID int64, v *domain.Vehicle) error {
	const op = "service.vehicles.Update"

	if !ValidType(v.Type) {
		return fmt.Errorf("%s: %w", op, ErrInvalidType)
	}

	if !ValidSize(v.Size) {
		return fmt.Errorf("%s: %w", op, ErrInvalidSize)
	}

	if err := s.store.Vehicles().Update(ctx, userID, v); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrVehicleNotFound)
		}

		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%s: %w", op, ErrPlateConflict)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Delete removes a vehicle owned by userID.
//
// Returns:
//   - error: vehicles.ErrVehicleNotFound if the vehicle does not exist or
//     belongs to another user.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	const op = "service.vehicles.Delete"

	if err := s.store.Vehicles().Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrVehicleNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ValidType reports whether t is an accepted vehicle type. Empty is allowed,
// the attribute is optional.
func ValidType(t string) bool {
	switch t {
	case "", "car", "motorcycle", "truck", "van", "suv":
		return true
	default:
		return false
	}
}

// ValidSize reports whether s is an accepted vehicle size. Empty is allowed,
// the attribute is optional.
func ValidSize(s string) bool {
	switch s {
	case "", "small", "medium", "large":
		return true
	default:
		return false
	}
}
