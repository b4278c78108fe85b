package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// rowScanner abstracts *sql.Row and *sql.Rows so scan helpers work for both.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// marshalImages encodes image references as a JSON array for storage.
func marshalImages(images []string) string {
	if len(images) == 0 {
		return "[]"
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalImages decodes the stored JSON array of image references.
func unmarshalImages(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil
	}
	return images
}

// marshalItems encodes order items as JSON for storage.
func marshalItems(items []models.OrderItem) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalItems decodes the stored JSON array of order items.
func unmarshalItems(raw string) []models.OrderItem {
	if raw == "" || raw == "[]" {
		return nil
	}
	var items []models.OrderItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}

// scanSeller scans a seller record from a row.
func scanSeller(row rowScanner) (*models.Seller, error) {
	var s models.Seller
	var description, whatsappAddress sql.NullString
	err := row.Scan(
		&s.UID, &s.Email, &s.BusinessName, &s.OwnerName, &s.Phone, &s.Address,
		&s.Category, &description, &s.Status, &whatsappAddress, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan seller failed: %w", err)
	}
	s.Description = description.String
	s.WhatsAppAddress = whatsappAddress.String
	return &s, nil
}

// scanProduct scans a product record from a row.
func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var description, images sql.NullString
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &description, &p.Price, &p.Category,
		&p.Stock, &images, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan product failed: %w", err)
	}
	p.Description = description.String
	p.Images = unmarshalImages(images.String)
	return &p, nil
}

// scanOrder scans an order record from a row.
func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var items sql.NullString
	err := row.Scan(
		&o.ID, &o.SellerID, &o.CustomerPhone, &o.CustomerName, &items,
		&o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order failed: %w", err)
	}
	o.Items = unmarshalItems(items.String)
	return &o, nil
}
