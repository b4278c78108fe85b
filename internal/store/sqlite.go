// Package store provides persistence backends for the WhatsUp bot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/whatsup-com/whatsup-bot/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file; the containing
// directory is created if needed.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateAccount(a models.Account) error {
	_, err := s.db.Exec(
		`INSERT INTO accounts (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		a.UID, a.Email, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateAccount failed", "error", err, "email", a.Email)
		return fmt.Errorf("failed to insert account for %s: %w", a.Email, err)
	}
	slog.Debug("SQLiteStore CreateAccount succeeded", "uid", a.UID)
	return nil
}

func (s *SQLiteStore) GetAccountByEmail(email string) (*models.Account, error) {
	row := s.db.QueryRow(
		`SELECT uid, email, password_hash, created_at FROM accounts WHERE email = ? COLLATE NOCASE`,
		email,
	)
	var a models.Account
	err := row.Scan(&a.UID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetAccountByEmail failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) CreateSeller(sel models.Seller) error {
	_, err := s.db.Exec(
		`INSERT INTO sellers (uid, email, business_name, owner_name, phone, address, category, description, status, whatsapp_address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sel.UID, sel.Email, sel.BusinessName, sel.OwnerName, sel.Phone, sel.Address,
		sel.Category, sel.Description, sel.Status, sel.WhatsAppAddress, sel.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateSeller failed", "error", err, "uid", sel.UID)
		return fmt.Errorf("failed to insert seller %s: %w", sel.UID, err)
	}
	slog.Debug("SQLiteStore CreateSeller succeeded", "uid", sel.UID, "business", sel.BusinessName)
	return nil
}

func (s *SQLiteStore) GetSeller(uid string) (*models.Seller, error) {
	row := s.db.QueryRow(
		`SELECT uid, email, business_name, owner_name, phone, address, category, description, status, whatsapp_address, created_at
		 FROM sellers WHERE uid = ?`, uid,
	)
	return scanSeller(row)
}

func (s *SQLiteStore) GetSellerByEmail(email string) (*models.Seller, error) {
	row := s.db.QueryRow(
		`SELECT uid, email, business_name, owner_name, phone, address, category, description, status, whatsapp_address, created_at
		 FROM sellers WHERE email = ? COLLATE NOCASE`, email,
	)
	return scanSeller(row)
}

func (s *SQLiteStore) UpdateSellerStatus(uid string, status models.SellerStatus) error {
	res, err := s.db.Exec(`UPDATE sellers SET status = ? WHERE uid = ?`, status, uid)
	if err != nil {
		slog.Error("SQLiteStore UpdateSellerStatus failed", "error", err, "uid", uid)
		return fmt.Errorf("failed to update seller status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateProduct(p models.Product) error {
	_, err := s.db.Exec(
		`INSERT INTO products (id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SellerID, p.Name, p.Description, p.Price, p.Category, p.Stock,
		marshalImages(p.Images), p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateProduct failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
	}
	slog.Debug("SQLiteStore CreateProduct succeeded", "id", p.ID, "seller", p.SellerID)
	return nil
}

func (s *SQLiteStore) GetProduct(id string) (*models.Product, error) {
	row := s.db.QueryRow(
		`SELECT id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at
		 FROM products WHERE id = ?`, id,
	)
	return scanProduct(row)
}

func (s *SQLiteStore) ListProductsBySeller(sellerID string) ([]models.Product, error) {
	rows, err := s.db.Query(
		`SELECT id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at
		 FROM products WHERE seller_id = ? ORDER BY created_at`, sellerID,
	)
	if err != nil {
		slog.Error("SQLiteStore ListProductsBySeller query failed", "error", err, "seller", sellerID)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *SQLiteStore) ListActiveProducts() ([]models.Product, error) {
	rows, err := s.db.Query(
		`SELECT id, seller_id, name, description, price, category, stock, images, is_active, created_at, updated_at
		 FROM products WHERE is_active = 1 ORDER BY created_at`,
	)
	if err != nil {
		slog.Error("SQLiteStore ListActiveProducts query failed", "error", err)
		return nil, fmt.Errorf("failed to query active products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *SQLiteStore) UpdateProduct(p models.Product) error {
	res, err := s.db.Exec(
		`UPDATE products SET name = ?, description = ?, price = ?, category = ?, stock = ?, images = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Category, p.Stock,
		marshalImages(p.Images), p.IsActive, p.UpdatedAt, p.ID,
	)
	if err != nil {
		slog.Error("SQLiteStore UpdateProduct failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to update product %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateOrder(o models.Order) error {
	_, err := s.db.Exec(
		`INSERT INTO orders (id, seller_id, customer_phone, customer_name, items, total, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.SellerID, o.CustomerPhone, o.CustomerName, marshalItems(o.Items),
		o.Total, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateOrder failed", "error", err, "id", o.ID)
		return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
	}
	slog.Debug("SQLiteStore CreateOrder succeeded", "id", o.ID, "seller", o.SellerID)
	return nil
}

func (s *SQLiteStore) ListOrdersBySeller(sellerID string) ([]models.Order, error) {
	rows, err := s.db.Query(
		`SELECT id, seller_id, customer_phone, customer_name, items, total, status, created_at, updated_at
		 FROM orders WHERE seller_id = ? ORDER BY created_at`, sellerID,
	)
	if err != nil {
		slog.Error("SQLiteStore ListOrdersBySeller query failed", "error", err, "seller", sellerID)
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

func (s *SQLiteStore) UpdateOrderStatus(id string, status models.OrderStatus) error {
	res, err := s.db.Exec(`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		slog.Error("SQLiteStore UpdateOrderStatus failed", "error", err, "id", id)
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// collectProducts drains a product result set.
func collectProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product rows: %w", err)
	}
	return products, nil
}
