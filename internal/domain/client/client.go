package client

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested client does not exist.
var ErrNotFound = errors.New("client not found")

// Client represents a registered customer.
type Client struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Address string
}

// Repository defines persistence operations for client records.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context, limit, offset int) ([]Client, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id string) error
}
