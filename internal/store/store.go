// Package store provides persistence backends for the WhatsUp bot.
//
// The Store interface is the persistence gateway consumed by the flow layer
// and the identity provider. Backends exist for SQLite, PostgreSQL, and
// in-memory use (tests and DSN-less runs). All writes are single-document;
// no cross-table transactions are used.
package store

import (
	"errors"
	"strings"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Store is the persistence gateway contract.
type Store interface {
	// Accounts (identity provider credential records).
	CreateAccount(a models.Account) error
	GetAccountByEmail(email string) (*models.Account, error)

	// Sellers.
	CreateSeller(s models.Seller) error
	GetSeller(uid string) (*models.Seller, error)
	GetSellerByEmail(email string) (*models.Seller, error)
	UpdateSellerStatus(uid string, status models.SellerStatus) error

	// Products.
	CreateProduct(p models.Product) error
	GetProduct(id string) (*models.Product, error)
	ListProductsBySeller(sellerID string) ([]models.Product, error)
	ListActiveProducts() ([]models.Product, error)
	UpdateProduct(p models.Product) error

	// Orders.
	CreateOrder(o models.Order) error
	ListOrdersBySeller(sellerID string) ([]models.Order, error)
	UpdateOrderStatus(id string, status models.OrderStatus) error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use URL or key=value forms; anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// NewStore creates the backend matching the configured DSN. An empty DSN
// yields the in-memory store.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.DSN == "" {
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresStore(WithPostgresDSN(cfg.DSN))
	}
	return NewSQLiteStore(WithSQLiteDSN(cfg.DSN))
}
