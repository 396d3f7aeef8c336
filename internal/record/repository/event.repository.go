package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"recordstore/internal/record/model"
	"recordstore/pkg/logger"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS record_events (
	seq        BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// DefaultTimeout bounds one journal write. The store holds its write lock while it waits.
const DefaultTimeout = 5 * time.Second

const insertEvent = `INSERT INTO record_events (event_type, payload, created_at) VALUES ($1, $2, NOW())`

// EventRepository journals record store events to Postgres so state can be replayed on restart.
type EventRepository struct {
	DB      *sql.DB
	Timeout time.Duration
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{DB: db, Timeout: DefaultTimeout}
}

func (r *EventRepository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		logger.Sugar.Errorf("Failed to create record_events table: %v", err)
		return fmt.Errorf("migrate record_events: %w", err)
	}
	return nil
}

// AppendBatch inserts events in one transaction: either all rows are written or none.
func (r *EventRepository) AppendBatch(ctx context.Context, events []model.Event) error {
	payloads := make([][]byte, len(events))
	for i, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Type, err)
		}
		payloads[i] = payload
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		logger.Sugar.Errorf("Failed to begin journal transaction: %v", err)
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	for i, ev := range events {
		if _, err := tx.ExecContext(ctx, insertEvent, string(ev.Type), payloads[i]); err != nil {
			tx.Rollback()
			logger.Sugar.Errorf("Failed to journal %s event for doc %s: %v", ev.Type, ev.DocumentID, err)
			return fmt.Errorf("insert %s event: %w", ev.Type, err)
		}
	}
	if err := tx.Commit(); err != nil {
		logger.Sugar.Errorf("Failed to commit journal transaction: %v", err)
		return fmt.Errorf("commit journal transaction: %w", err)
	}
	return nil
}

// Record implements store.Journal, bounding the write by Timeout.
func (r *EventRepository) Record(events []model.Event) error {
	ctx := context.Background()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.AppendBatch(ctx, events)
}

// Load returns every journaled event in the order it was written.
func (r *EventRepository) Load(ctx context.Context) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT seq, event_type, payload FROM record_events ORDER BY seq ASC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to load record events: %v", err)
		return nil, fmt.Errorf("load record events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			seq       int64
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&seq, &eventType, &payload); err != nil {
			return nil, fmt.Errorf("scan record event: %w", err)
		}
		var ev model.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode record event %d: %w", seq, err)
		}
		ev.Type = model.EventType(eventType)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record events: %w", err)
	}
	return events, nil
}
