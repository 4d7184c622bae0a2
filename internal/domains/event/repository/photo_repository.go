package repository

import (
	"context"
	"errors"
	"fmt"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const photoColumns = `id, event_id, storage_key, thumbnail_key, original_filename, content_type, size_bytes, uploaded_at`

type postgresPhotoRepository struct{}

func NewPhotoRepository() PhotoRepository {
	return &postgresPhotoRepository{}
}

func scanPhoto(row scanner) (*model.Photo, error) {
	var p model.Photo
	err := row.Scan(
		&p.ID, &p.EventID, &p.StorageKey, &p.ThumbnailKey, &p.OriginalFilename,
		&p.ContentType, &p.SizeBytes, &p.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPhotos(rows pgx.Rows) ([]*model.Photo, error) {
	defer rows.Close()

	photos := make([]*model.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return photos, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (r *postgresPhotoRepository) Create(ctx context.Context, q database.Querier, p *model.Photo) error {
	query := `INSERT INTO photos (` + photoColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.Exec(ctx, query,
		p.ID, p.EventID, p.StorageKey, p.ThumbnailKey, p.OriginalFilename,
		p.ContentType, p.SizeBytes, p.UploadedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503": // foreign_key_violation
				return model.ErrEventNotFound
			case "23505":
				return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
			}
		}
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func (r *postgresPhotoRepository) Get(ctx context.Context, q database.Querier, eventID, photoID uuid.UUID) (*model.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1 AND event_id = $2`

	p, err := scanPhoto(q.QueryRow(ctx, query, photoID, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

func (r *postgresPhotoRepository) ListByEvent(ctx context.Context, q database.Querier, eventID uuid.UUID) ([]*model.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE event_id = $1 ORDER BY uploaded_at DESC, id DESC`

	rows, err := q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return collectPhotos(rows)
}

func (r *postgresPhotoRepository) ListByIDs(ctx context.Context, q database.Querier, eventID uuid.UUID, ids []uuid.UUID) ([]*model.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE event_id = $1 AND id = ANY($2::uuid[])
		ORDER BY uploaded_at DESC, id DESC
	`

	rows, err := q.Query(ctx, query, eventID, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return collectPhotos(rows)
}

func (r *postgresPhotoRepository) Delete(ctx context.Context, q database.Querier, eventID, photoID uuid.UUID) (*model.Photo, error) {
	query := `DELETE FROM photos WHERE id = $1 AND event_id = $2 RETURNING ` + photoColumns

	p, err := scanPhoto(q.QueryRow(ctx, query, photoID, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete photo: %w", err)
	}
	return p, nil
}

func (r *postgresPhotoRepository) DeleteByIDs(ctx context.Context, q database.Querier, eventID uuid.UUID, ids []uuid.UUID) ([]*model.Photo, error) {
	query := `DELETE FROM photos WHERE event_id = $1 AND id = ANY($2::uuid[]) RETURNING ` + photoColumns

	rows, err := q.Query(ctx, query, eventID, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to delete photos: %w", err)
	}
	return collectPhotos(rows)
}

func (r *postgresPhotoRepository) DeleteByEvent(ctx context.Context, q database.Querier, eventID uuid.UUID) (int, error) {
	tag, err := q.Exec(ctx, `DELETE FROM photos WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete photos of event: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
