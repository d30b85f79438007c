package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool the repo needs; pgxmock satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, email, user_name, password_hash, mobile, full_name, role, created_at`

type UsersRepo struct {
	db   DBTX
	prom *observability.Prom
}

// prom may be nil.
func NewUsersRepo(db DBTX, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, prom: prom}
}

func (r *UsersRepo) FindByID(ctx context.Context, id int64) (user.Record, error) {
	var rec user.Record

	err := r.prom.ObserveDB("users.find_by_id", func() error {
		var err error
		rec, err = scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return user.Record{}, translate(err)
	}

	return rec, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.Record, error) {
	var rec user.Record

	err := r.prom.ObserveDB("users.find_by_email", func() error {
		var err error
		rec, err = scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		return user.Record{}, translate(err)
	}

	return rec, nil
}

// FindAll returns every row in ascending id order.
func (r *UsersRepo) FindAll(ctx context.Context) ([]user.Record, error) {
	out := make([]user.Record, 0)

	err := r.prom.ObserveDB("users.find_all", func() error {
		rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Save inserts when rec.ID is zero, otherwise overwrites the row in place.
// created_at is never part of the UPDATE.
func (r *UsersRepo) Save(ctx context.Context, rec user.Record) (user.Record, error) {
	if rec.ID == 0 {
		return r.insert(ctx, rec)
	}

	return r.update(ctx, rec)
}

func (r *UsersRepo) insert(ctx context.Context, rec user.Record) (user.Record, error) {
	err := r.prom.ObserveDB("users.insert", func() error {
		return r.db.QueryRow(ctx,
			`INSERT INTO users (email, user_name, password_hash, mobile, full_name, role, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id`,
			rec.Email, rec.UserName, rec.PasswordHash, rec.Mobile, rec.FullName, string(rec.Role), rec.CreatedAt,
		).Scan(&rec.ID)
	})

	if err != nil {
		return user.Record{}, translate(err)
	}

	return rec, nil
}

func (r *UsersRepo) update(ctx context.Context, rec user.Record) (user.Record, error) {
	var saved user.Record

	err := r.prom.ObserveDB("users.update", func() error {
		var err error
		saved, err = scanUser(r.db.QueryRow(ctx,
			`UPDATE users
				SET email = $2,
					user_name = $3,
					password_hash = $4,
					mobile = $5,
					full_name = $6,
					role = $7
			WHERE id = $1
			RETURNING `+userColumns,
			rec.ID, rec.Email, rec.UserName, rec.PasswordHash, rec.Mobile, rec.FullName, string(rec.Role),
		))
		return err
	})

	if err != nil {
		// row vanished between the service's lookup and this write
		return user.Record{}, translate(err)
	}

	return saved, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag

	err := r.prom.ObserveDB("users.delete", func() error {
		var err error
		tag, err = r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (user.Record, error) {
	var rec user.Record
	var role string

	err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.UserName,
		&rec.PasswordHash,
		&rec.Mobile,
		&rec.FullName,
		&role,
		&rec.CreatedAt,
	)
	if err != nil {
		return user.Record{}, err
	}

	rec.Role = user.Role(role)
	rec.CreatedAt = rec.CreatedAt.UTC()

	return rec, nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return user.ErrEmailTaken
	}

	return err
}
