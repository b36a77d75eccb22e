package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/backoffice/internal/domain/client"
)

const (
	createClientSQL = `INSERT INTO clients (id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)`

	getClientByIDSQL = `SELECT id, name, email, phone, address
		FROM clients WHERE id = $1`

	listClientsSQL = `SELECT id, name, email, phone, address
		FROM clients ORDER BY name, id LIMIT $1 OFFSET $2`

	countClientsSQL = `SELECT count(*) FROM clients`

	updateClientSQL = `UPDATE clients SET name = $2, email = $3, phone = $4, address = $5
		WHERE id = $1`

	deleteClientSQL = `DELETE FROM clients WHERE id = $1`
)

var _ client.Repository = (*ClientRepository)(nil)

// ClientRepository implements client.Repository backed by PostgreSQL.
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a ClientRepository that uses the given pool.
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// Create persists a new client record.
func (r *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	_, err := r.pool.Exec(ctx, createClientSQL, c.ID, c.Name, c.Email, c.Phone, c.Address)
	if err != nil {
		return fmt.Errorf("creating client %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a single client by its identifier.
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*client.Client, error) {
	rows, err := r.pool.Query(ctx, getClientByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting client %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanClient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, client.ErrNotFound
		}
		return nil, fmt.Errorf("getting client %q: %w", id, err)
	}
	return &c, nil
}

// List returns one page of clients ordered by name.
func (r *ClientRepository) List(ctx context.Context, limit, offset int) ([]client.Client, error) {
	rows, err := r.pool.Query(ctx, listClientsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return pgx.CollectRows(rows, scanClient)
}

// Count returns the total number of clients.
func (r *ClientRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countClientsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting clients: %w", err)
	}
	return n, nil
}

// Update overwrites all mutable fields of a client.
func (r *ClientRepository) Update(ctx context.Context, c *client.Client) error {
	tag, err := r.pool.Exec(ctx, updateClientSQL, c.ID, c.Name, c.Email, c.Phone, c.Address)
	if err != nil {
		return fmt.Errorf("updating client %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

// Delete removes a client record. Historical orders referencing the client
// are left in place.
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteClientSQL, id)
	if err != nil {
		return fmt.Errorf("deleting client %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.CollectableRow) (client.Client, error) {
	var c client.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address)
	return c, err
}
