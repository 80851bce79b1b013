package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/repository"
)

type FacilityRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *FacilityRepo) With(db DB) *FacilityRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *FacilityRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a facility record and returns it with the generated ID.
// The available counter is seeded to the total; lots are created separately
// with InitLots inside the same transaction.
//
// Returns:
//   - error: repository.ErrConflict if the code is already taken.
func (r *FacilityRepo) Create(ctx context.Context, f *domain.Facility) (*domain.Facility, error) {
	const op = "postgres.FacilityRepo.Create"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO facilities(code, name, location, total_spaces, available_spaces, fee_per_hour, status)
		 VALUES ($1, $2, $3, $4, $4, $5, $6)
		 RETURNING id, created_at`,
		f.Code, f.Name, f.Location, f.TotalSpaces, f.FeePerHour, f.Status,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	f.AvailableSpaces = f.TotalSpaces

	return f, nil
}

// InitLots batch-inserts one unoccupied lot per label for the facility.
func (r *FacilityRepo) InitLots(ctx context.Context, facilityID int64, labels []string) error {
	const op = "postgres.FacilityRepo.InitLots"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, label := range labels {
		batch.Queue(
			`INSERT INTO lots(facility_id, label, is_occupied)
			 VALUES ($1, $2, FALSE)
			 ON CONFLICT (facility_id, label) DO NOTHING`,
			facilityID, label,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a facility by ID.
//
// Returns:
//   - error: repository.ErrNotFound if the facility does not exist.
func (r *FacilityRepo) Get(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "postgres.FacilityRepo.Get"

	db := r.handle()

	var f domain.Facility
	err := db.QueryRow(ctx,
		`SELECT id, code, name, location, total_spaces, available_spaces, fee_per_hour, status, created_at
		 FROM facilities WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.Code, &f.Name, &f.Location, &f.TotalSpaces, &f.AvailableSpaces, &f.FeePerHour, &f.Status, &f.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &f, nil
}

// List lists facilities ordered by code, optionally filtered by a
// case-insensitive match on code, name or location.
func (r *FacilityRepo) List(
	ctx context.Context,
	search string,
	limit, offset int,
) ([]domain.Facility, int64, error) {
	const op = "postgres.FacilityRepo.List"

	db := r.handle()

	pattern := "%" + search + "%"

	var total int64
	err := db.QueryRow(ctx,
		`SELECT count(*)
		 FROM facilities
		 WHERE ($1 = '' OR code ILIKE $2 OR name ILIKE $2 OR location ILIKE $2)`,
		search, pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT id, code, name, location, total_spaces, available_spaces, fee_per_hour, status, created_at
		 FROM facilities
		 WHERE ($1 = '' OR code ILIKE $2 OR name ILIKE $2 OR location ILIKE $2)
		 ORDER BY code
		 LIMIT $3 OFFSET $4`,
		search, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Facility
	for rows.Next() {
		var f domain.Facility
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.Location, &f.TotalSpaces, &f.AvailableSpaces, &f.FeePerHour, &f.Status, &f.CreatedAt); err != nil {
			return nil, 0, wrapDBErr(op, err)
		}

		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	return out, total, nil
}

// Update writes the mutable attributes of a facility. Capacity and the
// available counter are not touched here; they move only with lot rows.
//
// Returns:
//   - error: repository.ErrNotFound if the facility does not exist.
//   - error: repository.ErrConflict if the new code is already taken.
func (r *FacilityRepo) Update(ctx context.Context, f *domain.Facility) error {
	const op = "postgres.FacilityRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE facilities
		 SET code = $2, name = $3, location = $4, fee_per_hour = $5, status = $6
		 WHERE id = $1`,
		f.ID, f.Code, f.Name, f.Location, f.FeePerHour, f.Status,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a facility; lots cascade via the schema.
//
// Returns:
//   - error: repository.ErrNotFound if the facility does not exist.
func (r *FacilityRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.FacilityRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// ListLots lists the facility's lots ordered by label, optionally only the
// unoccupied ones.
func (r *FacilityRepo) ListLots(ctx context.Context, facilityID int64, onlyFree bool) ([]domain.Lot, error) {
	const op = "postgres.FacilityRepo.ListLots"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, facility_id, label, is_occupied
		 FROM lots
		 WHERE facility_id = $1 AND ($2 = FALSE OR is_occupied = FALSE)
		 ORDER BY label`,
		facilityID, onlyFree,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Lot
	for rows.Next() {
		var l domain.Lot
		if err := rows.Scan(&l.ID, &l.FacilityID, &l.Label, &l.Occupied); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CountsByOccupancy recomputes availability for a facility from its lot rows.
//
// Returns:
//   - error: repository.ErrNotFound if the facility does not exist.
func (r *FacilityRepo) CountsByOccupancy(ctx context.Context, facilityID int64) (*domain.FacilityCounts, error) {
	const op = "postgres.FacilityRepo.CountsByOccupancy"

	db := r.handle()

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM facilities WHERE id = $1)`,
		facilityID,
	).Scan(&exists); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	var c domain.FacilityCounts
	err := db.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE NOT is_occupied),
		        count(*) FILTER (WHERE is_occupied)
		 FROM lots WHERE facility_id = $1`,
		facilityID,
	).Scan(&c.Total, &c.Available, &c.Occupied)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

// ReconcileCounters rewrites every facility's available counter from its lot
// rows and returns the number of rows that had drifted.
func (r *FacilityRepo) ReconcileCounters(ctx context.Context) (int64, error) {
	const op = "postgres.FacilityRepo.ReconcileCounters"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE facilities f
		 SET available_spaces = l.free
		 FROM (
		     SELECT facility_id, count(*) FILTER (WHERE NOT is_occupied) AS free
		     FROM lots
		     GROUP BY facility_id
		 ) l
		 WHERE l.facility_id = f.id AND f.available_spaces <> l.free`,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}
