// Package store provides persistence backends for the WhatsUp bot.
//
// This file implements the PostgreSQL-backed store shared with the web
// dashboard deployment.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/whatsup-com/whatsup-bot/internal/models"

	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateAccount(a models.Account) error {
	_, err := s.db.Exec(
		`INSERT INTO accounts (uid, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		a.UID, a.Email, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore CreateAccount failed", "error", err, "email", a.Email)
		return fmt.Errorf("failed to insert account for %s: %w", a.Email, err)
	}
	return nil
}

func (s *PostgresStore) GetAccountByEmail(email string) (*models.Account, error) {
	row := s.db.QueryRow(
		`SELECT uid, email, password_hash, created_at FROM accounts WHERE LOWER(email) = LOWER($1)`,
		email,
	)
	var a models.Account
	err := row.Scan(&a.UID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetAccountByEmail failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) CreateSeller(sel models.Seller) error {
	_, err := s.db.Exec(
		`INSERT INTO sellers (uid, email, business_name, owner_name, phone, address, category, description, status, whatsapp_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sel.UID, sel.Email, sel.BusinessName, sel.OwnerName, sel.Phone, sel.Address,
		sel.Category, sel.Description, sel.Status, sel.WhatsAppAddress, sel.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore CreateSeller failed", "error", err, "uid", sel.UID)
		return fmt.Errorf("failed to insert seller %s: %w", sel.UID, err)
	}
	return nil
}

func (s *PostgresStore) GetSeller(uid string) (*models.Seller, error) {
	row := s.db.QueryRow(
		`SELECT uid, email, business_name, owner_name, phone, address, category, description, status, whatsapp_address, created_at
		 FROM sellers WHERE uid = $1`, uid,
	)
	return scanSeller(row)
}

func (s *PostgresStore) GetSellerByEmail(email string) (*models.Seller, error) {
	row := s.db.QueryRow(
		`SELECT uid, email, business_name, owner_name, phone, address, category, description, status, whatsapp_address, created_at
		 FROM sellers WHERE LOWER(email) = LOWER($1)`, email,
	)
	return scanSeller(row)
}

func (s *PostgresStore) UpdateSellerStatus(uid string, status models.SellerStatus) error {
	res, err := s.db.Exec(`UPDATE sellers SET status = $1 WHERE uid = $2`, status, uid)
	if err != nil {
		slog.Error("PostgresStore UpdateSellerStatus failed", "error", err, "uid", uid)
		return fmt.Errorf("failed to update seller status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateProduct(p models.Product) error {
	_, err := s.db.Exec(
		`INSERT INTO products (id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.SellerID, p.Name, p.Description, p.Price, p.Category, p.Stock,
		marshalImages(p.Images), p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore CreateProduct failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetProduct(id string) (*models.Product, error) {
	row := s.db.QueryRow(
		`SELECT id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at
		 FROM products WHERE id = $1`, id,
	)
	return scanProduct(row)
}

func (s *PostgresStore) ListProductsBySeller(sellerID string) ([]models.Product, error) {
	rows, err := s.db.Query(
		`SELECT id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at
		 FROM products WHERE seller_id = $1 ORDER BY created_at`, sellerID,
	)
	if err != nil {
		slog.Error("PostgresStore ListProductsBySeller query failed", "error", err, "seller", sellerID)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *PostgresStore) ListActiveProducts() ([]models.Product, error) {
	rows, err := s.db.Query(
		`SELECT id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at
		 FROM products WHERE is_active = TRUE ORDER BY created_at`,
	)
	if err != nil {
		slog.Error("PostgresStore ListActiveProducts query failed", "error", err)
		return nil, fmt.Errorf("failed to query active products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *PostgresStore) UpdateProduct(p models.Product) error {
	res, err := s.db.Exec(
		`UPDATE products SET name = $1, description = $2, price = $3, category = $4, stock = $5, images = $6, is_active = $7, updated_at = $8
		 WHERE id = $9`,
		p.Name, p.Description, p.Price, p.Category, p.Stock,
		marshalImages(p.Images), p.IsActive, p.UpdatedAt, p.ID,
	)
	if err != nil {
		slog.Error("PostgresStore UpdateProduct failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to update product %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateOrder(o models.Order) error {
	_, err := s.db.Exec(
		`INSERT INTO orders (id, seller_id, customer_phone, customer_name, items, total, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.SellerID, o.CustomerPhone, o.CustomerName, marshalItems(o.Items),
		o.Total, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore CreateOrder failed", "error", err, "id", o.ID)
		return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListOrdersBySeller(sellerID string) ([]models.Order, error) {
	rows, err := s.db.Query(
		`SELECT id, seller_id, customer_phone, customer_name, items, total, status, created_at, updated_at
		 FROM orders WHERE seller_id = $1 ORDER BY created_at`, sellerID,
	)
	if err != nil {
		slog.Error("PostgresStore ListOrdersBySeller query failed", "error", err, "seller", sellerID)
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) UpdateOrderStatus(id string, status models.OrderStatus) error {
	res, err := s.db.Exec(`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		slog.Error("PostgresStore UpdateOrderStatus failed", "error", err, "id", id)
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
