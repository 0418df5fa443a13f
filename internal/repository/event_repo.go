package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pissten/SMARTi-EMS/internal/models"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const insertEventSQL = `
		INSERT INTO budget_events (id, occurred_at, type, entity_id, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`

// Append inserts a new event. If EventID or OccurredAt are empty, they're set.
func (r *EventSQLite) Append(ctx context.Context, e models.BudgetEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	var entityPtr *string
	if e.EntityID != "" {
		entityPtr = &e.EntityID
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		e.OccurredAt.Format("2006-01-02 15:04:05"),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		entityPtr,
		e.Description,
		metaPtr,
	)
	return err
}

const selectEventsSQL = `SELECT id, occurred_at, type, entity_id, message, meta FROM budget_events`

// eventQuerySQL builds the SELECT for q. With a limit the newest rows are
// fetched in descending order.
func eventQuerySQL(q EventQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !q.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, q.To.UTC())
	}
	if typ := strings.ToUpper(strings.TrimSpace(q.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if id := strings.TrimSpace(q.EntityID); id != "" {
		conds = append(conds, "entity_id = ?")
		args = append(args, id)
	}

	stmt := selectEventsSQL
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	if q.Limit > 0 {
		stmt += " ORDER BY occurred_at DESC LIMIT ?"
		args = append(args, q.Limit)
	} else {
		stmt += " ORDER BY occurred_at ASC"
	}
	return stmt, args
}

// List returns the events matching q in chronological order.
func (r *EventSQLite) List(ctx context.Context, query EventQuery) ([]models.BudgetEvent, error) {
	q, args := eventQuerySQL(query)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.BudgetEvent, 0, 64)
	for rows.Next() {
		var (
			ev       models.BudgetEvent
			entityID sql.NullString
			metaStr  sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &entityID, &ev.Description, &metaStr); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.EntityID = entityID.String

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if query.Limit > 0 {
		slices.Reverse(out)
	}
	return out, nil
}
