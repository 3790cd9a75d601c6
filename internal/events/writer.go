package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"siteflow/internal/domain"
)

const (
	TypeContextSaved   = "context.saved"
	TypeProjectDeleted = "project.deleted"
	TypeToolFailed     = "tool.failed"
)

type Payload map[string]any

// Sink records workflow events. Events are observational: callers log a
// failed Append and carry on.
type Sink interface {
	Append(ctx context.Context, evtType, projectName, requestID string, payload Payload) error
}

// Writer appends events to the SQLite events table.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, evtType, projectName, requestID string, payload Payload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339Nano)
	data, err := marshal(payload)
	if err != nil {
		return err
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,project_name,request_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, nullable(projectName), nullable(requestID), string(data))
	return err
}

// Tail returns the most recent limit events, oldest first, optionally for one
// project only.
func (w Writer) Tail(ctx context.Context, limit int, projectName string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := w.DB.QueryContext(ctx, `SELECT id, ts, type, COALESCE(project_name,''), COALESCE(request_id,''), payload_json
FROM events WHERE (?1 = '' OR project_name = ?1) ORDER BY id DESC LIMIT ?2`, projectName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Type, &e.ProjectName, &e.RequestID, &e.Payload); err != nil {
			return nil, err
		}
		if e.TS, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("event %d timestamp: %w", e.ID, err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Append(ctx context.Context, evtType, projectName, requestID string, payload Payload) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, evtType, projectName, requestID, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Append(context.Context, string, string, string, Payload) error { return nil }

func marshal(payload Payload) ([]byte, error) {
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return data, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
