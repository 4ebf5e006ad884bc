package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airspace_fan/internal/models"
)

type ClientSQLite struct {
	db *sql.DB
}

func NewClientSQLite(db *sql.DB) *ClientSQLite {
	return &ClientSQLite{db: db}
}

var _ Clients = (*ClientSQLite)(nil)

const (
	insertClientSQL     = `INSERT INTO clients (id, name, created_at) VALUES (?, ?, ?)`
	selectClientByIDSQL = `SELECT id, name, created_at FROM clients WHERE id = ?`
	selectClientsSQL    = `SELECT id, name, created_at FROM clients ORDER BY created_at ASC`
	deleteClientSQL     = `DELETE FROM clients WHERE id = ?`
)

// Create inserts a paired client.
func (r *ClientSQLite) Create(ctx context.Context, c models.Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, insertClientSQL, c.ID, c.Name, c.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert client %q: %w", c.Name, err)
	}
	return nil
}

// Get fetches a client by id. Returns (nil, nil) if not found.
func (r *ClientSQLite) Get(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := r.db.QueryRowContext(ctx, selectClientByIDSQL, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select client %q: %w", id, err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// List returns every paired client, oldest first.
func (r *ClientSQLite) List(ctx context.Context) ([]models.Client, error) {
	rows, err := r.db.QueryContext(ctx, selectClientsSQL)
	if err != nil {
		return nil, fmt.Errorf("select clients: %w", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete unpairs a client. Deleting an unknown id is not an error.
func (r *ClientSQLite) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, deleteClientSQL, id); err != nil {
		return fmt.Errorf("delete client %q: %w", id, err)
	}
	return nil
}
