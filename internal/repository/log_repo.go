package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"airspace_fan/internal/models"
)

type LogSQLite struct {
	db *sql.DB
}

func NewLogSQLite(db *sql.DB) *LogSQLite { return &LogSQLite{db: db} }

var _ LogRepo = (*LogSQLite)(nil)

const insertLogSQL = `
		INSERT INTO command_log (id, occurred_at, type, mac, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`

// Append inserts an entry. Missing EntryID and OccurredAt are filled in.
func (r *LogSQLite) Append(ctx context.Context, e models.LogEntry) error {
	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
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

	var macPtr *string
	if mac := normalizeMAC(e.MACAddr); mac != "" {
		macPtr = &mac
	}

	_, err := r.db.ExecContext(ctx, insertLogSQL,
		e.EntryID,
		e.OccurredAt.Format("2006-01-02 15:04:05"),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		macPtr,
		e.Description,
		metaPtr,
	)
	return err
}

// List returns entries matching f, oldest first.
func (r *LogSQLite) List(ctx context.Context, f LogFilter) ([]models.LogEntry, error) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To.UTC())
	}
	if typ := strings.ToUpper(strings.TrimSpace(f.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if mac := normalizeMAC(f.MAC); mac != "" {
		conds = append(conds, "mac = ?")
		args = append(args, mac)
	}

	q := `SELECT id, occurred_at, type, mac, message, meta FROM command_log`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.LogEntry, 0, 64)
	for rows.Next() {
		var (
			e       models.LogEntry
			mac     sql.NullString
			metaStr sql.NullString
		)
		if err := rows.Scan(&e.EntryID, &e.OccurredAt, &e.Type, &mac, &e.Description, &metaStr); err != nil {
			return nil, err
		}
		e.OccurredAt = e.OccurredAt.UTC()
		e.MACAddr = mac.String

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				e.Metadata = v
			} else {
				e.Metadata = metaStr.String
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
