package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

const maxListLimit = 500

type telemetryRepo struct {
	db *sqlx.DB
}

// NewTelemetryRepo creates a sqlx-backed TelemetryRepository.
func NewTelemetryRepo(db *sqlx.DB) port.TelemetryRepository {
	return &telemetryRepo{db: db}
}

type apiCallRow struct {
	ID           uuid.UUID `db:"id"`
	Service      string    `db:"service"`
	Endpoint     string    `db:"endpoint"`
	Method       string    `db:"method"`
	RequestMeta  string    `db:"request_meta"`
	ResponseMeta string    `db:"response_meta"`
	ElapsedMS    int64     `db:"elapsed_ms"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *telemetryRepo) Create(ctx context.Context, rec *domain.TelemetryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	reqMeta, err := marshalMeta(rec.RequestMeta)
	if err != nil {
		return fmt.Errorf("telemetryRepo.Create request_meta: %w", err)
	}
	respMeta, err := marshalMeta(rec.ResponseMeta)
	if err != nil {
		return fmt.Errorf("telemetryRepo.Create response_meta: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO api_call_logs (id, service, endpoint, method, request_meta, response_meta, elapsed_ms, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID.String(), rec.Service, rec.Endpoint, rec.Method, reqMeta, respMeta,
		rec.ElapsedMS, rec.Status, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("telemetryRepo.Create: %w", err)
	}
	return nil
}

func (r *telemetryRepo) ListRecent(ctx context.Context, limit int) ([]domain.TelemetryRecord, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	var rows []apiCallRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT id, service, endpoint, method, request_meta, response_meta, elapsed_ms, status, created_at
		 FROM api_call_logs
		 ORDER BY created_at DESC, id
		 LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("telemetryRepo.ListRecent: %w", err)
	}

	records := make([]domain.TelemetryRecord, 0, len(rows))
	for i := range rows {
		rec, convErr := rows[i].toRecord()
		if convErr != nil {
			return nil, fmt.Errorf("telemetryRepo.ListRecent: row %s: %w", rows[i].ID, convErr)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (row *apiCallRow) toRecord() (domain.TelemetryRecord, error) {
	rec := domain.TelemetryRecord{
		ID:        row.ID,
		Service:   row.Service,
		Endpoint:  row.Endpoint,
		Method:    row.Method,
		ElapsedMS: row.ElapsedMS,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.RequestMeta), &rec.RequestMeta); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(row.ResponseMeta), &rec.ResponseMeta); err != nil {
		return rec, err
	}
	return rec, nil
}

func marshalMeta(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
