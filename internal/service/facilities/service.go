package facilities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/repository"
	postgresrepo "github.com/kirinyoku/park-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/park-go/internal/repository/redis"
	"github.com/kirinyoku/park-go/internal/uow"
)

type Config struct {
	SummaryTTL      time.Duration
	AvailabilityTTL time.Duration
	DefaultPage     int
	MaxPage         int
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.FacilitiesPubSub
	uow    *uow.UoW
	cfg    Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.FacilitiesPubSub,
	cfg Config,
) *Service {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 10
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 100
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		cfg:    cfg,
	}
}

// Create registers a facility and seeds one lot per space, labelled
// CODE-1..CODE-N, inside a single transaction.
//
// Parameters:
//   - ctx: request-scoped context.
//   - f: the facility to create; TotalSpaces drives lot generation.
//
// Returns:
//   - *domain.FacilityWithLots: the created facility and its lots.
//   - error: facilities.ErrCodeConflict if the code is already taken.
//   - error: facilities.ErrInvalidStatus if the status is not a known value.
func (s *Service) Create(ctx context.Context, f *domain.Facility) (*domain.FacilityWithLots, error) {
	const op = "service.facilities.Create"

	if f.Name == "" {
		f.Name = "Public Parking"
	}
	if f.Location == "" {
		f.Location = "Unknown location"
	}
	if f.FeePerHour == 0 {
		f.FeePerHour = 100
	}
	if f.Status == "" {
		f.Status = domain.FacilityAvailable
	}

	if !validStatus(f.Status) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	var out domain.FacilityWithLots

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		created, err := s.store.Facilities().With(tx).Create(ctx, f)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrCodeConflict)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		labels := make([]string, 0, created.TotalSpaces)
		for i := 1; i <= created.TotalSpaces; i++ {
			labels = append(labels, LotLabel(created.Code, i))
		}

		if err := s.store.Facilities().With(tx).InitLots(ctx, created.ID, labels); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		lots, err := s.store.Facilities().With(tx).ListLots(ctx, created.ID, false)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		out = domain.FacilityWithLots{Facility: *created, Lots: lots}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Get retrieves a facility summary through the cache.
//
// Returns:
//   - error: facilities.ErrFacilityNotFound if the facility does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "service.facilities.Get"

	key := redisrepo.KeyFacilitySummary(id)

	facility, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.SummaryTTL,
		func(ctx context.Context) (domain.Facility, error) {
			f, err := s.store.Facilities().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Facility{}, ErrFacilityNotFound
				}

				return domain.Facility{}, err
			}

			return *f, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &facility, nil
}

// GetWithLots retrieves a facility together with all its lots, uncached.
//
// Returns:
//   - error: facilities.ErrFacilityNotFound if the facility does not exist.
func (s *Service) GetWithLots(ctx context.Context, id int64) (*domain.FacilityWithLots, error) {
	const op = "service.facilities.GetWithLots"

	f, err := s.store.Facilities().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrFacilityNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lots, err := s.store.Facilities().ListLots(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &domain.FacilityWithLots{Facility: *f, Lots: lots}, nil
}

// List lists facilities with pagination and optional search.
func (s *Service) List(
	ctx context.Context,
	search string,
	page, limit int,
) ([]domain.Facility, int64, error) {
	const op = "service.facilities.List"

	page, limit = s.ClampPage(page, limit)

	out, total, err := s.store.Facilities().List(ctx, search, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return out, total, nil
}

// Update writes the mutable attributes of a facility.
//
// Returns:
//   - error: facilities.ErrFacilityNotFound if the facility does not exist.
//   - error: facilities.ErrCodeConflict if the new code is already taken.
//   - error: facilities.ErrInvalidStatus if the status is not a known value.
func (s *Service) Update(ctx context.Context, f *domain.Facility) error {
	const op = "service.facilities.Update"

	if !validStatus(f.Status) {
		return fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.store.Facilities().With(tx).Update(ctx, f); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrFacilityNotFound)
			}

			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrCodeConflict)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateFacility(ctx, f.ID)
			_ = s.pubsub.PublishFacilityChanged(ctx, f.ID)
		})

		return nil
	})

	return err
}

// Delete removes a facility and its lots.
//
// Returns:
//   - error: facilities.ErrFacilityNotFound if the facility does not exist.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.facilities.Delete"

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.store.Facilities().With(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrFacilityNotFound)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateFacility(ctx, id)
			_ = s.pubsub.PublishFacilityChanged(ctx, id)
		})

		return nil
	})

	return err
}

// Availability returns the facility's occupancy counts, recomputed from lot
// rows and served through the cache.
//
// Returns:
//   - error: facilities.ErrFacilityNotFound if the facility does not exist.
func (s *Service) Availability(ctx context.Context, id int64) (*domain.FacilityCounts, error) {
	const op = "service.facilities.Availability"

	key := redisrepo.KeyFacilityAvailability(id)

	counts, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.FacilityCounts, error) {
			c, err := s.store.Facilities().CountsByOccupancy(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.FacilityCounts{}, ErrFacilityNotFound
				}

				return domain.FacilityCounts{}, err
			}

			return *c, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &counts, nil
}

// Lots lists a facility's lots, optionally only the free ones. The full map
// is cached; the filtered view is derived from it.
//
// Returns:
//   - error: facilities.ErrFacilityNotFound if the facility does not exist.
func (s *Service) Lots(ctx context.Context, id int64, onlyFree bool) ([]domain.Lot, error) {
	const op = "service.facilities.Lots"

	key := redisrepo.KeyFacilityLotMap(id)

	lots, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) ([]domain.Lot, error) {
			if _, err := s.store.Facilities().Get(ctx, id); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrFacilityNotFound
				}

				return nil, err
			}

			return s.store.Facilities().ListLots(ctx, id, false)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !onlyFree {
		return lots, nil
	}

	free := make([]domain.Lot, 0, len(lots))
	for _, lot := range lots {
		if !lot.Occupied {
			free = append(free, lot)
		}
	}

	return free, nil
}

// Reconcile rewrites availability counters from lot rows and returns how many
// facilities had drifted. Counters only ever move inside session transitions,
// so a non-zero result means a bug or manual interference.
func (s *Service) Reconcile(ctx context.Context) (int64, error) {
	const op = "service.facilities.Reconcile"

	fixed, err := s.store.Facilities().ReconcileCounters(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return fixed, nil
}

// ClampPage normalizes pagination input to the configured bounds.
func (s *Service) ClampPage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}

	if limit <= 0 {
		limit = s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		limit = s.cfg.MaxPage
	}

	return page, limit
}

// LotLabel builds the label of the i-th lot of a facility.
func LotLabel(code string, i int) string {
	return fmt.Sprintf("%s-%d", code, i)
}

func validStatus(st domain.FacilityStatus) bool {
	switch st {
	case domain.FacilityAvailable, domain.FacilityMaintenance, domain.FacilityFull:
		return true
	default:
		return false
	}
}
