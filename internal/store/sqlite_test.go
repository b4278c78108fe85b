package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "bot.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteAccountRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.CreateAccount(models.Account{
		UID:          "uid-1",
		Email:        "Seller@Example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	got, err := s.GetAccountByEmail("seller@example.com")
	if err != nil {
		t.Fatalf("GetAccountByEmail should be case-insensitive: %v", err)
	}
	if got.UID != "uid-1" || got.PasswordHash != "hash" {
		t.Errorf("unexpected account %+v", got)
	}

	if _, err := s.GetAccountByEmail("nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteSellerRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	seedSeller(t, s, "uid-1", "seller@example.com")

	got, err := s.GetSeller("uid-1")
	if err != nil {
		t.Fatalf("GetSeller failed: %v", err)
	}
	if got.BusinessName != "Acme" || got.Status != models.SellerStatusPending {
		t.Errorf("unexpected seller %+v", got)
	}

	if err := s.UpdateSellerStatus("uid-1", models.SellerStatusApproved); err != nil {
		t.Fatalf("UpdateSellerStatus failed: %v", err)
	}
	got, _ = s.GetSellerByEmail("seller@example.com")
	if got.Status != models.SellerStatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
}

func TestSQLiteProductImagesPersist(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now()

	err := s.CreateProduct(models.Product{
		ID:        "p1",
		SellerID:  "uid-1",
		Name:      "Alpha",
		Price:     100,
		Stock:     5,
		Images:    []string{"a.jpg", "b.jpg"},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	got, err := s.GetProduct("p1")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if len(got.Images) != 2 || got.Images[0] != "a.jpg" {
		t.Errorf("images not persisted: %v", got.Images)
	}

	active, err := s.ListActiveProducts()
	if err != nil {
		t.Fatalf("ListActiveProducts failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active product, got %d", len(active))
	}

	got.IsActive = false
	got.UpdatedAt = time.Now()
	if err := s.UpdateProduct(*got); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	active, _ = s.ListActiveProducts()
	if len(active) != 0 {
		t.Errorf("deactivated product still listed as active")
	}
}

func TestSQLiteOrderRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now()

	err := s.CreateOrder(models.Order{
		ID:            "o1",
		SellerID:      "uid-1",
		CustomerPhone: "15550001111",
		CustomerName:  "Morgan",
		Items:         []models.OrderItem{{ProductID: "p1", ProductName: "Alpha", Quantity: 1, Price: 100}},
		Total:         100,
		Status:        models.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	orders, err := s.ListOrdersBySeller("uid-1")
	if err != nil {
		t.Fatalf("ListOrdersBySeller failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].ProductName != "Alpha" {
		t.Errorf("order items not persisted: %+v", orders[0].Items)
	}

	if err := s.UpdateOrderStatus("o1", models.OrderStatusShipped); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	orders, _ = s.ListOrdersBySeller("uid-1")
	if orders[0].Status != models.OrderStatusShipped {
		t.Errorf("status = %q, want shipped", orders[0].Status)
	}
}
