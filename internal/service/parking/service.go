package parking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/fee"
	"github.com/kirinyoku/park-go/internal/repository"
	postgresrepo "github.com/kirinyoku/park-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/park-go/internal/repository/redis"
	"github.com/kirinyoku/park-go/internal/uow"
)

// txRepos is the slice of repository operations a lifecycle transition uses
// inside its transaction.
type txRepos interface {
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetFacility(ctx context.Context, id int64) (*domain.Facility, error)
	ClaimLot(ctx context.Context, facilityID int64) (*domain.Lot, error)
	CreateSession(ctx context.Context, s *domain.Session) (*domain.Session, error)
	CreateTicket(ctx context.Context, sessionID int64) (*domain.Ticket, error)
	AdjustAvailable(ctx context.Context, facilityID int64, delta int) error
	GetActiveForUpdate(ctx context.Context, id int64) (*domain.Session, float64, error)
	Complete(ctx context.Context, id int64, exitTime time.Time, minutes int, amount float64) error
	CreateBill(ctx context.Context, b *domain.Bill) (*domain.Bill, error)
	ReleaseLot(ctx context.Context, lotID int64) error
}

// storeRepos binds the store's repositories to one open transaction.
type storeRepos struct {
	store *postgresrepo.Store
	tx    postgresrepo.DB
}

func (r storeRepos) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return r.store.Vehicles().With(r.tx).Get(ctx, id)
}

func (r storeRepos) GetFacility(ctx context.Context, id int64) (*domain.Facility, error) {
	return r.store.Facilities().With(r.tx).Get(ctx, id)
}

func (r storeRepos) ClaimLot(ctx context.Context, facilityID int64) (*domain.Lot, error) {
	return r.store.Sessions().With(r.tx).ClaimLot(ctx, facilityID)
}

func (r storeRepos) CreateSession(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	return r.store.Sessions().With(r.tx).Create(ctx, s)
}

func (r storeRepos) CreateTicket(ctx context.Context, sessionID int64) (*domain.Ticket, error) {
	return r.store.Sessions().With(r.tx).CreateTicket(ctx, sessionID)
}

func (r storeRepos) AdjustAvailable(ctx context.Context, facilityID int64, delta int) error {
	return r.store.Sessions().With(r.tx).AdjustAvailable(ctx, facilityID, delta)
}

func (r storeRepos) GetActiveForUpdate(ctx context.Context, id int64) (*domain.Session, float64, error) {
	return r.store.Sessions().With(r.tx).GetActiveForUpdate(ctx, id)
}

func (r storeRepos) Complete(ctx context.Context, id int64, exitTime time.Time, minutes int, amount float64) error {
	return r.store.Sessions().With(r.tx).Complete(ctx, id, exitTime, minutes, amount)
}

func (r storeRepos) CreateBill(ctx context.Context, b *domain.Bill) (*domain.Bill, error) {
	return r.store.Sessions().With(r.tx).CreateBill(ctx, b)
}

func (r storeRepos) ReleaseLot(ctx context.Context, lotID int64) error {
	return r.store.Sessions().With(r.tx).ReleaseLot(ctx, lotID)
}

// Service drives the session lifecycle: NONE -> ACTIVE -> COMPLETED. Each
// transition is one transaction: the lot flag, the facility counter, the
// session row and its artifact (ticket or bill) commit together or not at all.
type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.FacilitiesPubSub
	limiter *redisrepo.EntryLimiter
	run     func(ctx context.Context, fn func(ctx context.Context, r txRepos, after func(uow.AfterCommit)) error) error
	now     func() time.Time
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.FacilitiesPubSub,
	limiter *redisrepo.EntryLimiter,
) *Service {
	u := uow.NewUoW(store)

	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		run: func(ctx context.Context, fn func(ctx context.Context, r txRepos, after func(uow.AfterCommit)) error) error {
			return u.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
				return fn(ctx, storeRepos{store: store, tx: tx}, after)
			})
		},
		now: time.Now,
	}
}

// StartSession opens a session for a vehicle at a facility: claims the free
// lot with the lowest label, creates the ACTIVE session and its ticket, and
// decrements the facility's available counter.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: the caller; 0 falls back to the vehicle's owner.
//   - vehicleID: the entering vehicle.
//   - facilityID: the facility to park in.
//   - clientIP: rate-limit bucket; empty disables limiting.
//
// Returns:
//   - *domain.SessionStart: the created session and ticket.
//   - error: parking.ErrVehicleNotFound if the vehicle does not exist.
//   - error: parking.ErrFacilityNotFound if the facility does not exist.
//   - error: parking.ErrNoAvailability if no lot is free.
//   - error: parking.ErrRateLimited if the client exceeded the entry rate.
func (s *Service) StartSession(
	ctx context.Context,
	userID, vehicleID, facilityID int64,
	clientIP string,
) (*domain.SessionStart, error) {
	const op = "service.parking.StartSession"

	if s.limiter != nil && clientIP != "" {
		dec, err := s.limiter.AllowIP(ctx, clientIP)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !dec.Allowed {
			return nil, fmt.Errorf("%s: %w: retry in %s", op, ErrRateLimited, dec.RetryAfter)
		}
	}

	var result domain.SessionStart

	err := s.run(ctx, func(
		ctx context.Context,
		r txRepos,
		after func(uow.AfterCommit),
	) error {
		vehicle, err := r.GetVehicle(ctx, vehicleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrVehicleNotFound)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		if _, err := r.GetFacility(ctx, facilityID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrFacilityNotFound)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		lot, err := r.ClaimLot(ctx, facilityID)
		if err != nil {
			if errors.Is(err, repository.ErrNoFreeLots) {
				return fmt.Errorf("%s: %w", op, ErrNoAvailability)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		ownerID := userID
		if ownerID == 0 {
			ownerID = vehicle.UserID
		}

		session, err := r.CreateSession(ctx, &domain.Session{
			VehicleID:  vehicleID,
			FacilityID: facilityID,
			LotID:      lot.ID,
			UserID:     ownerID,
			EntryTime:  s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		ticket, err := r.CreateTicket(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := r.AdjustAvailable(ctx, facilityID, -1); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		result = domain.SessionStart{Session: *session, Ticket: *ticket}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateFacility(ctx, facilityID)
			_ = s.pubsub.PublishFacilityChanged(ctx, facilityID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// EndSession closes an ACTIVE session: computes the charge from entry to now,
// writes the exit bookkeeping with a PENDING bill, releases the lot, and
// increments the facility's available counter. Entry and exit are both read
// from this service's clock, so exit never precedes entry.
//
// Parameters:
//   - ctx: request-scoped context.
//   - sessionID: the session to close.
//
// Returns:
//   - *domain.SessionEnd: the completed session and its bill.
//   - error: parking.ErrSessionNotFound if no session has that ID.
//   - error: parking.ErrSessionNotActive if the session is already completed.
func (s *Service) EndSession(ctx context.Context, sessionID int64) (*domain.SessionEnd, error) {
	const op = "service.parking.EndSession"

	var result domain.SessionEnd

	err := s.run(ctx, func(
		ctx context.Context,
		r txRepos,
		after func(uow.AfterCommit),
	) error {
		session, feePerHour, err := r.GetActiveForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
			}

			if errors.Is(err, repository.ErrSessionNotActive) {
				return fmt.Errorf("%s: %w", op, ErrSessionNotActive)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		exitTime := s.now().UTC()
		minutes, amount, err := fee.Charge(session.EntryTime, exitTime, feePerHour)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := r.Complete(ctx, sessionID, exitTime, minutes, amount); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		bill, err := r.CreateBill(ctx, &domain.Bill{
			SessionID:   sessionID,
			UserID:      session.UserID,
			VehicleID:   session.VehicleID,
			FacilityID:  session.FacilityID,
			TotalAmount: amount,
			Status:      domain.BillPending,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := r.ReleaseLot(ctx, session.LotID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := r.AdjustAvailable(ctx, session.FacilityID, 1); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		session.Status = domain.SessionCompleted
		session.ExitTime = &exitTime
		session.DurationMinutes = &minutes
		session.TotalAmount = &amount

		result = domain.SessionEnd{Session: *session, Bill: *bill}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateFacility(ctx, session.FacilityID)
			_ = s.pubsub.PublishFacilityChanged(ctx, session.FacilityID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// ActiveSessions lists all currently ACTIVE sessions.
func (s *Service) ActiveSessions(ctx context.Context) ([]domain.Session, error) {
	const op = "service.parking.ActiveSessions"

	sessions, err := s.store.Sessions().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}

// SessionDetails retrieves a session with its ticket and bill.
//
// Returns:
//   - error: parking.ErrSessionNotFound if no session has that ID.
func (s *Service) SessionDetails(ctx context.Context, sessionID int64) (*domain.SessionDetails, error) {
	const op = "service.parking.SessionDetails"

	details, err := s.store.Sessions().GetDetails(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return details, nil
}

// SessionsByFacility lists a facility's sessions filtered by status and entry
// date.
//
// Returns:
//   - error: parking.ErrFacilityNotFound if the facility does not exist.
func (s *Service) SessionsByFacility(
	ctx context.Context,
	facilityID int64,
	status domain.SessionStatus,
	day *time.Time,
) ([]domain.Session, error) {
	const op = "service.parking.SessionsByFacility"

	if _, err := s.store.Facilities().Get(ctx, facilityID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrFacilityNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessions, err := s.store.Sessions().ListByFacility(ctx, facilityID, status, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}
