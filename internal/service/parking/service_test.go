package parking

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/repository"
	"github.com/kirinyoku/park-go/internal/uow"
)

// fakeRepos mirrors the repository semantics of the lifecycle operations in
// memory: guarded claim by lowest label, clamped counter, status-guarded
// completion.
type fakeRepos struct {
	vehicles   map[int64]domain.Vehicle
	facilities map[int64]*fakeFacility
	lots       []*domain.Lot
	sessions   map[int64]*domain.Session
	tickets    map[int64]domain.Ticket
	bills      map[int64]domain.Bill
	nextID     int64
}

type fakeFacility struct {
	available  int
	total      int
	feePerHour float64
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		vehicles:   make(map[int64]domain.Vehicle),
		facilities: make(map[int64]*fakeFacility),
		sessions:   make(map[int64]*domain.Session),
		tickets:    make(map[int64]domain.Ticket),
		bills:      make(map[int64]domain.Bill),
	}
}

func (f *fakeRepos) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepos) addFacility(id int64, labels []string, occupied int, fee float64) {
	f.facilities[id] = &fakeFacility{
		available:  len(labels) - occupied,
		total:      len(labels),
		feePerHour: fee,
	}
	for i, label := range labels {
		f.lots = append(f.lots, &domain.Lot{
			ID:         f.id(),
			FacilityID: id,
			Label:      label,
			Occupied:   i < occupied,
		})
	}
}

func (f *fakeRepos) GetVehicle(_ context.Context, id int64) (*domain.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (f *fakeRepos) GetFacility(_ context.Context, id int64) (*domain.Facility, error) {
	fc, ok := f.facilities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.Facility{
		ID:              id,
		TotalSpaces:     fc.total,
		AvailableSpaces: fc.available,
		FeePerHour:      fc.feePerHour,
	}, nil
}

func (f *fakeRepos) ClaimLot(_ context.Context, facilityID int64) (*domain.Lot, error) {
	var free []*domain.Lot
	for _, l := range f.lots {
		if l.FacilityID == facilityID && !l.Occupied {
			free = append(free, l)
		}
	}
	if len(free) == 0 {
		return nil, repository.ErrNoFreeLots
	}
	sort.Slice(free, func(i, j int) bool { return free[i].Label < free[j].Label })
	free[0].Occupied = true
	claimed := *free[0]
	return &claimed, nil
}

func (f *fakeRepos) CreateSession(_ context.Context, s *domain.Session) (*domain.Session, error) {
	cp := *s
	cp.ID = f.id()
	cp.Status = domain.SessionActive
	f.sessions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRepos) CreateTicket(_ context.Context, sessionID int64) (*domain.Ticket, error) {
	if _, ok := f.tickets[sessionID]; ok {
		return nil, repository.ErrConflict
	}
	t := domain.Ticket{ID: f.id(), SessionID: sessionID, IssuedAt: time.Now()}
	f.tickets[sessionID] = t
	return &t, nil
}

func (f *fakeRepos) AdjustAvailable(_ context.Context, facilityID int64, delta int) error {
	fc, ok := f.facilities[facilityID]
	if !ok {
		return repository.ErrConflict
	}
	next := fc.available + delta
	if next < 0 || next > fc.total {
		return repository.ErrConflict
	}
	fc.available = next
	return nil
}

func (f *fakeRepos) GetActiveForUpdate(_ context.Context, id int64) (*domain.Session, float64, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, 0, repository.ErrNotFound
	}
	if s.Status != domain.SessionActive {
		return nil, 0, repository.ErrSessionNotActive
	}
	cp := *s
	return &cp, f.facilities[s.FacilityID].feePerHour, nil
}

func (f *fakeRepos) Complete(_ context.Context, id int64, exitTime time.Time, minutes int, amount float64) error {
	s, ok := f.sessions[id]
	if !ok || s.Status != domain.SessionActive {
		return repository.ErrSessionNotActive
	}
	s.Status = domain.SessionCompleted
	s.ExitTime = &exitTime
	s.DurationMinutes = &minutes
	s.TotalAmount = &amount
	return nil
}

func (f *fakeRepos) CreateBill(_ context.Context, b *domain.Bill) (*domain.Bill, error) {
	if _, ok := f.bills[b.SessionID]; ok {
		return nil, repository.ErrConflict
	}
	cp := *b
	cp.ID = f.id()
	cp.IssuedAt = time.Now()
	f.bills[b.SessionID] = cp
	return &cp, nil
}

func (f *fakeRepos) ReleaseLot(_ context.Context, lotID int64) error {
	for _, l := range f.lots {
		if l.ID == lotID {
			l.Occupied = false
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRepos) occupiedCount(facilityID int64) int {
	n := 0
	for _, l := range f.lots {
		if l.FacilityID == facilityID && l.Occupied {
			n++
		}
	}
	return n
}

func newTestService(f *fakeRepos, now time.Time) *Service {
	return &Service{
		run: func(ctx context.Context, fn func(ctx context.Context, r txRepos, after func(uow.AfterCommit)) error) error {
			return fn(ctx, f, func(uow.AfterCommit) {})
		},
		now: func() time.Time { return now },
	}
}

func TestStartSessionClaimsLowestFreeLot(t *testing.T) {
	f := newFakeRepos()
	f.vehicles[1] = domain.Vehicle{ID: 1, UserID: 9}
	f.addFacility(10, []string{"PKN-1", "PKN-2", "PKN-3"}, 1, 100)

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(f, now)

	started, err := svc.StartSession(context.Background(), 0, 1, 10, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	if started.Session.Status != domain.SessionActive {
		t.Fatalf("expected ACTIVE session, got %s", started.Session.Status)
	}
	if !started.Session.EntryTime.Equal(now) {
		t.Fatalf("entry time mismatch: %s", started.Session.EntryTime)
	}
	if started.Session.UserID != 9 {
		t.Fatalf("expected owner fallback, got user %d", started.Session.UserID)
	}
	if started.Ticket.SessionID != started.Session.ID {
		t.Fatalf("ticket bound to wrong session")
	}

	// exactly one extra lot flipped, the free one with the lowest label
	if got := f.occupiedCount(10); got != 2 {
		t.Fatalf("expected 2 occupied lots, got %d", got)
	}
	for _, l := range f.lots {
		if l.Label == "PKN-2" && !l.Occupied {
			t.Fatalf("expected lowest free label PKN-2 to be claimed")
		}
	}
	if f.facilities[10].available != 1 {
		t.Fatalf("expected counter 1, got %d", f.facilities[10].available)
	}
}

func TestStartSessionNoAvailabilityWritesNothing(t *testing.T) {
	f := newFakeRepos()
	f.vehicles[1] = domain.Vehicle{ID: 1, UserID: 9}
	f.addFacility(10, []string{"PKN-1", "PKN-2"}, 2, 100)

	svc := newTestService(f, time.Now())

	_, err := svc.StartSession(context.Background(), 9, 1, 10, "")
	if !errors.Is(err, ErrNoAvailability) {
		t.Fatalf("expected ErrNoAvailability, got %v", err)
	}

	if len(f.sessions) != 0 || len(f.tickets) != 0 {
		t.Fatalf("expected no session or ticket rows")
	}
	if f.facilities[10].available != 0 {
		t.Fatalf("expected counter untouched, got %d", f.facilities[10].available)
	}
	if got := f.occupiedCount(10); got != 2 {
		t.Fatalf("expected lot flags untouched, got %d occupied", got)
	}
}

func TestStartSessionUnknownVehicleAndFacility(t *testing.T) {
	f := newFakeRepos()
	f.vehicles[1] = domain.Vehicle{ID: 1, UserID: 9}
	f.addFacility(10, []string{"PKN-1"}, 0, 100)

	svc := newTestService(f, time.Now())

	if _, err := svc.StartSession(context.Background(), 9, 404, 10, ""); !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("expected ErrVehicleNotFound, got %v", err)
	}
	if _, err := svc.StartSession(context.Background(), 9, 1, 404, ""); !errors.Is(err, ErrFacilityNotFound) {
		t.Fatalf("expected ErrFacilityNotFound, got %v", err)
	}
	if len(f.sessions) != 0 || f.occupiedCount(10) != 0 {
		t.Fatalf("expected no writes on failed starts")
	}
}

func TestEndSessionCompletedIsRejected(t *testing.T) {
	f := newFakeRepos()
	f.addFacility(10, []string{"PKN-1"}, 0, 100)
	f.sessions[5] = &domain.Session{
		ID:         5,
		FacilityID: 10,
		Status:     domain.SessionCompleted,
	}

	svc := newTestService(f, time.Now())

	if _, err := svc.EndSession(context.Background(), 5); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
	if _, err := svc.EndSession(context.Background(), 404); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if len(f.bills) != 0 {
		t.Fatalf("expected no bill rows")
	}
	if f.facilities[10].available != 1 {
		t.Fatalf("expected counter untouched, got %d", f.facilities[10].available)
	}
}

func TestSessionRoundTripImmediateExit(t *testing.T) {
	f := newFakeRepos()
	f.vehicles[1] = domain.Vehicle{ID: 1, UserID: 9}
	f.addFacility(10, []string{"PKN-1", "PKN-2"}, 0, 120)

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(f, now)

	started, err := svc.StartSession(context.Background(), 9, 1, 10, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if f.facilities[10].available != 1 {
		t.Fatalf("expected counter 1 after start, got %d", f.facilities[10].available)
	}

	ended, err := svc.EndSession(context.Background(), started.Session.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	// entry and exit share the injected clock: zero duration, zero charge
	if got := *ended.Session.DurationMinutes; got != 0 {
		t.Fatalf("expected duration 0, got %d", got)
	}
	if got := *ended.Session.TotalAmount; got != 0 {
		t.Fatalf("expected amount 0, got %f", got)
	}
	if ended.Session.Status != domain.SessionCompleted {
		t.Fatalf("expected COMPLETED, got %s", ended.Session.Status)
	}
	if ended.Bill.Status != domain.BillPending {
		t.Fatalf("expected PENDING bill, got %s", ended.Bill.Status)
	}
	if ended.Bill.TotalAmount != 0 {
		t.Fatalf("expected bill amount 0, got %f", ended.Bill.TotalAmount)
	}

	// lot and counter restored
	if got := f.occupiedCount(10); got != 0 {
		t.Fatalf("expected all lots free, got %d occupied", got)
	}
	if f.facilities[10].available != 2 {
		t.Fatalf("expected counter back to 2, got %d", f.facilities[10].available)
	}

	// a second end of the same session must be rejected with no extra bill
	if _, err := svc.EndSession(context.Background(), started.Session.ID); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive on repeat end, got %v", err)
	}
	if len(f.bills) != 1 {
		t.Fatalf("expected exactly one bill, got %d", len(f.bills))
	}
}
