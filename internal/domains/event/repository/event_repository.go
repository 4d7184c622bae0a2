package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const eventColumns = `id, guest_code, owner_secret_hash, name, owner_email, created_at, expires_at, uploads_open`

type scanner interface {
	Scan(dest ...any) error
}

type postgresEventRepository struct{}

func NewEventRepository() EventRepository {
	return &postgresEventRepository{}
}

func scanEvent(row scanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.GuestCode, &e.OwnerSecretHash, &e.Name, &e.OwnerEmail,
		&e.CreatedAt, &e.ExpiresAt, &e.UploadsOpen,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *postgresEventRepository) Create(ctx context.Context, q database.Querier, e *model.Event) error {
	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.Exec(ctx, query,
		e.ID, e.GuestCode, e.OwnerSecretHash, e.Name, e.OwnerEmail,
		e.CreatedAt, e.ExpiresAt, e.UploadsOpen,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) findOne(ctx context.Context, q database.Querier, where string, arg any, lock database.RowLock) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + where + ` = $1` + lock.Clause()

	e, err := scanEvent(q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *postgresEventRepository) FindByGuestCode(ctx context.Context, q database.Querier, code string, lock database.RowLock) (*model.Event, error) {
	return r.findOne(ctx, q, "guest_code", code, lock)
}

func (r *postgresEventRepository) FindByOwnerHash(ctx context.Context, q database.Querier, hash []byte, lock database.RowLock) (*model.Event, error) {
	return r.findOne(ctx, q, "owner_secret_hash", hash, lock)
}

func (r *postgresEventRepository) FindByID(ctx context.Context, q database.Querier, id uuid.UUID, lock database.RowLock) (*model.Event, error) {
	return r.findOne(ctx, q, "id", id, lock)
}

func (r *postgresEventRepository) CloseUploads(ctx context.Context, q database.Querier, id uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE events SET uploads_open = FALSE WHERE id = $1 AND uploads_open`, id)
	if err != nil {
		return false, fmt.Errorf("failed to close uploads: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresEventRepository) ListExpired(ctx context.Context, q database.Querier, now time.Time, limit int, exclude []uuid.UUID) ([]*model.Event, error) {
	excluded := make([]string, len(exclude))
	for i, id := range exclude {
		excluded[i] = id.String()
	}

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE expires_at <= $1 AND NOT (id = ANY($3::uuid[]))
		ORDER BY expires_at, id
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, now, limit, excluded)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func (r *postgresEventRepository) Delete(ctx context.Context, q database.Querier, id uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}
