package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/repository"
)

type SessionRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SessionRepo) With(db DB) *SessionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SessionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// ClaimLot claims the free lot with the lowest label in a facility by
// flipping its occupied flag in one guarded update. Two transactions racing
// for the last free lot cannot both win: SKIP LOCKED steers them to
// different rows, and the subquery returns none when all are taken.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - facilityID: the facility to claim a lot in.
//
// Returns:
//   - *domain.Lot: the claimed lot, now occupied.
//   - error: repository.ErrNoFreeLots if the facility has no free lot.
func (r *SessionRepo) ClaimLot(ctx context.Context, facilityID int64) (*domain.Lot, error) {
	const op = "postgres.SessionRepo.ClaimLot"

	db := r.handle()

	var l domain.Lot
	err := db.QueryRow(ctx,
		`UPDATE lots
		 SET is_occupied = TRUE
		 WHERE id = (
		     SELECT id FROM lots
		     WHERE facility_id = $1 AND is_occupied = FALSE
		     ORDER BY label
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, facility_id, label, is_occupied`,
		facilityID,
	).Scan(&l.ID, &l.FacilityID, &l.Label, &l.Occupied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrNoFreeLots)
		}
		return nil, wrapDBErr(op, err)
	}

	return &l, nil
}

// ReleaseLot clears the occupied flag of a lot.
func (r *SessionRepo) ReleaseLot(ctx context.Context, lotID int64) error {
	const op = "postgres.SessionRepo.ReleaseLot"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE lots SET is_occupied = FALSE WHERE id = $1`,
		lotID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// AdjustAvailable moves a facility's available counter by delta, clamped to
// [0, total_spaces]. The guard failing means the counter and the lot rows
// disagree, which a correct transition never produces.
func (r *SessionRepo) AdjustAvailable(ctx context.Context, facilityID int64, delta int) error {
	const op = "postgres.SessionRepo.AdjustAvailable"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE facilities
		 SET available_spaces = available_spaces + $2
		 WHERE id = $1
		   AND available_spaces + $2 >= 0
		   AND available_spaces + $2 <= total_spaces`,
		facilityID, delta,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	return nil
}

// Create inserts an ACTIVE session bound to an already-claimed lot and
// returns it with the generated ID. EntryTime is taken from the caller so
// entry and exit stamps come from one clock.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	const op = "postgres.SessionRepo.Create"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO sessions(vehicle_id, facility_id, lot_id, user_id, status, entry_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		s.VehicleID, s.FacilityID, s.LotID, s.UserID, domain.SessionActive, s.EntryTime,
	).Scan(&s.ID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	s.Status = domain.SessionActive

	return s, nil
}

// CreateTicket issues the proof-of-entry artifact for a session.
//
// Returns:
//   - error: repository.ErrConflict if the session already has a ticket.
func (r *SessionRepo) CreateTicket(ctx context.Context, sessionID int64) (*domain.Ticket, error) {
	const op = "postgres.SessionRepo.CreateTicket"

	db := r.handle()

	t := domain.Ticket{SessionID: sessionID}
	err := db.QueryRow(ctx,
		`INSERT INTO tickets(session_id) VALUES ($1)
		 RETURNING id, issued_at`,
		sessionID,
	).Scan(&t.ID, &t.IssuedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// GetActiveForUpdate loads an ACTIVE session together with its facility's
// hourly fee, locking the session row for the rest of the transaction.
//
// Returns:
//   - error: repository.ErrNotFound if no session has that ID.
//   - error: repository.ErrSessionNotActive if the session exists but is not
//     ACTIVE.
func (r *SessionRepo) GetActiveForUpdate(ctx context.Context, id int64) (*domain.Session, float64, error) {
	const op = "postgres.SessionRepo.GetActiveForUpdate"

	db := r.handle()

	var s domain.Session
	var feePerHour float64
	err := db.QueryRow(ctx,
		`SELECT s.id, s.vehicle_id, s.facility_id, s.lot_id, s.user_id, s.status, s.entry_time, f.fee_per_hour
		 FROM sessions s
		 JOIN facilities f ON f.id = s.facility_id
		 WHERE s.id = $1
		 FOR UPDATE OF s`,
		id,
	).Scan(&s.ID, &s.VehicleID, &s.FacilityID, &s.LotID, &s.UserID, &s.Status, &s.EntryTime, &feePerHour)
	if err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	if s.Status != domain.SessionActive {
		return nil, 0, fmt.Errorf("%s: %w", op, repository.ErrSessionNotActive)
	}

	return &s, feePerHour, nil
}

// Complete writes the exit bookkeeping of a session and flips it COMPLETED.
// Guarded on status so a session is never completed twice.
func (r *SessionRepo) Complete(
	ctx context.Context,
	id int64,
	exitTime time.Time,
	durationMinutes int,
	totalAmount float64,
) error {
	const op = "postgres.SessionRepo.Complete"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE sessions
		 SET exit_time = $2, duration_minutes = $3, total_amount = $4, status = $5
		 WHERE id = $1 AND status = $6`,
		id, exitTime, durationMinutes, totalAmount, domain.SessionCompleted, domain.SessionActive,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrSessionNotActive)
	}

	return nil
}

// CreateBill issues the payable artifact for a completed session.
//
// Returns:
//   - error: repository.ErrConflict if the session already has a bill.
func (r *SessionRepo) CreateBill(ctx context.Context, b *domain.Bill) (*domain.Bill, error) {
	const op = "postgres.SessionRepo.CreateBill"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO bills(session_id, user_id, vehicle_id, facility_id, total_amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, issued_at`,
		b.SessionID, b.UserID, b.VehicleID, b.FacilityID, b.TotalAmount, b.Status,
	).Scan(&b.ID, &b.IssuedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// Get retrieves a session by ID.
//
// Returns:
//   - error: repository.ErrNotFound if no session has that ID.
func (r *SessionRepo) Get(ctx context.Context, id int64) (*domain.Session, error) {
	const op = "postgres.SessionRepo.Get"

	db := r.handle()

	s, err := scanSession(db.QueryRow(ctx, sessionColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

// GetDetails retrieves a session together with its ticket and bill, when
// already issued.
//
// Returns:
//   - error: repository.ErrNotFound if no session has that ID.
func (r *SessionRepo) GetDetails(ctx context.Context, id int64) (*domain.SessionDetails, error) {
	const op = "postgres.SessionRepo.GetDetails"

	db := r.handle()

	s, err := scanSession(db.QueryRow(ctx, sessionColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	d := domain.SessionDetails{Session: *s}

	var t domain.Ticket
	err = db.QueryRow(ctx,
		`SELECT id, session_id, issued_at FROM tickets WHERE session_id = $1`,
		id,
	).Scan(&t.ID, &t.SessionID, &t.IssuedAt)
	switch {
	case err == nil:
		d.Ticket = &t
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, wrapDBErr(op, err)
	}

	var b domain.Bill
	err = db.QueryRow(ctx,
		`SELECT id, session_id, user_id, vehicle_id, facility_id, total_amount, status, issued_at
		 FROM bills WHERE session_id = $1`,
		id,
	).Scan(&b.ID, &b.SessionID, &b.UserID, &b.VehicleID, &b.FacilityID, &b.TotalAmount, &b.Status, &b.IssuedAt)
	switch {
	case err == nil:
		d.Bill = &b
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

// ListActive lists all ACTIVE sessions, newest entries first.
func (r *SessionRepo) ListActive(ctx context.Context) ([]domain.Session, error) {
	const op = "postgres.SessionRepo.ListActive"

	db := r.handle()

	rows, err := db.Query(ctx,
		sessionColumns+` WHERE status = $1 ORDER BY entry_time DESC`,
		domain.SessionActive,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return collectSessions(op, rows)
}

// ListByFacility lists a facility's sessions, newest entries first,
// optionally filtered by status and by entry date (whole day).
func (r *SessionRepo) ListByFacility(
	ctx context.Context,
	facilityID int64,
	status domain.SessionStatus,
	day *time.Time,
) ([]domain.Session, error) {
	const op = "postgres.SessionRepo.ListByFacility"

	db := r.handle()

	var dayStart, dayEnd time.Time
	if day != nil {
		dayStart = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		dayEnd = dayStart.AddDate(0, 0, 1)
	}

	rows, err := db.Query(ctx,
		sessionColumns+`
		 WHERE facility_id = $1
		   AND ($2 = '' OR status = $2)
		   AND ($3::timestamptz IS NULL OR (entry_time >= $3 AND entry_time < $4))
		 ORDER BY entry_time DESC`,
		facilityID, string(status), nullableTime(day, dayStart), nullableTime(day, dayEnd),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return collectSessions(op, rows)
}

const sessionColumns = `SELECT id, vehicle_id, facility_id, lot_id, user_id, status, entry_time, exit_time, duration_minutes, total_amount FROM sessions`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.VehicleID, &s.FacilityID, &s.LotID, &s.UserID,
		&s.Status, &s.EntryTime, &s.ExitTime, &s.DurationMinutes, &s.TotalAmount,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSessions(op string, rows pgx.Rows) ([]domain.Session, error) {
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func nullableTime(gate *time.Time, v time.Time) any {
	if gate == nil {
		return nil
	}
	return v
}
