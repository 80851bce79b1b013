package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/repository"
)

type VehicleRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *VehicleRepo) With(db DB) *VehicleRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *VehicleRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a vehicle record and returns it with the generated ID.
//
// Returns:
//   - error: repository.ErrConflict if the plate is already registered.
func (r *VehicleRepo) Create(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	const op = "postgres.VehicleRepo.Create"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO vehicles(user_id, plate, model, type, size, color)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		v.UserID, v.Plate, v.Model, v.Type, v.Size, v.Color,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return v, nil
}

// Get retrieves a vehicle by ID.
//
// Returns:
//   - error: repository.ErrNotFound if the vehicle does not exist.
func (r *VehicleRepo) Get(ctx context.Context, id int64) (*domain.Vehicle, error) {
	const op = "postgres.VehicleRepo.Get"

	db := r.handle()

	var v domain.Vehicle
	err := db.QueryRow(ctx,
		`SELECT id, user_id, plate, model, type, size, color, created_at
		 FROM vehicles WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.UserID, &v.Plate, &v.Model, &v.Type, &v.Size, &v.Color, &v.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &v, nil
}

// ListByUser lists a user's vehicles, newest first, optionally filtered by a
// case-insensitive match on plate or model.
func (r *VehicleRepo) ListByUser(
	ctx context.Context,
	userID int64,
	search string,
	limit, offset int,
) ([]domain.Vehicle, int64, error) {
	const op = "postgres.VehicleRepo.ListByUser"

	db := r.handle()

	pattern := "%" + search + "%"

	var total int64
	err := db.QueryRow(ctx,
		`SELECT count(*)
		 FROM vehicles
		 WHERE user_id = $1
		   AND ($2 = '' OR plate ILIKE $3 OR model ILIKE $3)`,
		userID, search, pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT id, user_id, plate, model, type, size, color, created_at
		 FROM vehicles
		 WHERE user_id = $1
		   AND ($2 = '' OR plate ILIKE $3 OR model ILIKE $3)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4 OFFSET $5`,
		userID, search, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.UserID, &v.Plate, &v.Model, &v.Type, &v.Size, &v.Color, &v.CreatedAt); err != nil {
			return nil, 0, wrapDBErr(op, err)
		}

		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	return out, total, nil
}

// Update writes the mutable attributes of a vehicle owned by userID.
//
// Returns:
//   - error: repository.ErrNotFound if the vehicle does not exist or belongs
//     to another user.
//   - error: repository.ErrConflict if the new plate is already registered.
func (r *VehicleRepo) Update(ctx context.Context, userID int64, v *domain.Vehicle) error {
	const op = "postgres.VehicleRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE vehicles
		 SET plate = $3, model = $4, type = $5, size = $6, color = $7
		 WHERE id = $1 AND user_id = $2`,
		v.ID, userID, v.Plate, v.Model, v.Type, v.Size, v.Color,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a vehicle owned by userID.
//
// Returns:
//   - error: repository.ErrNotFound if the vehicle does not exist or belongs
//     to another user.
func (r *VehicleRepo) Delete(ctx context.Context, userID, id int64) error {
	const op = "postgres.VehicleRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`DELETE FROM vehicles WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}
