// Package models defines the core data structures for the WhatsUp bot.
//
// It includes the persisted entities (sellers, products, orders, accounts)
// shared with the web dashboard, and the inbound message event shape emitted
// by the messaging gateways.
package models

import (
	"errors"
	"time"
)

// SellerStatus is the lifecycle state of a seller profile. Transitions are
// driven by the admin dashboard; the bot only writes the initial "pending".
type SellerStatus string

const (
	SellerStatusPending   SellerStatus = "pending"
	SellerStatusApproved  SellerStatus = "approved"
	SellerStatusRejected  SellerStatus = "rejected"
	SellerStatusSuspended SellerStatus = "suspended"
)

// OrderStatus is the lifecycle state of an order, mutated only by seller
// action on the dashboard. The bot creates orders in "pending".
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Validation error variables shared across packages.
var (
	ErrEmptyRecipient   = errors.New("recipient cannot be empty")
	ErrEmptyProductName = errors.New("product name cannot be empty")
	ErrInvalidPrice     = errors.New("price must be a positive integer")
	ErrInvalidStock     = errors.New("stock must be a non-negative integer")
)

// Account is an identity provider credential record. The password is stored
// as a bcrypt hash, never in clear text.
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Seller is a registered seller profile. The record is shared between the bot
// and the web dashboard; last write wins.
type Seller struct {
	UID          string       `json:"uid"`
	Email        string       `json:"email"`
	BusinessName string       `json:"business_name"`
	OwnerName    string       `json:"owner_name"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	Category     string       `json:"category"`
	Description  string       `json:"description,omitempty"`
	Status       SellerStatus `json:"status"`
	// WhatsAppAddress is the conversational address the seller registered
	// from, used for outbound order notifications.
	WhatsAppAddress string    `json:"whatsapp_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Product is a catalog entry owned by exactly one seller. Products are never
// hard-deleted by the bot; the dashboard toggles IsActive instead.
type Product struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int       `json:"price"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	Images      []string  `json:"images"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the invariants a product must satisfy before persistence.
func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrEmptyProductName
	}
	if p.Price <= 0 {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// OrderItem is a single product line within an order.
type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int    `json:"price"`
}

// Order is a purchase record. Orders created by the bot capture buyer
// interest; the richer lifecycle (confirm/ship/deliver) lives on the
// dashboard.
type Order struct {
	ID            string      `json:"id"`
	SellerID      string      `json:"seller_id"`
	CustomerPhone string      `json:"customer_phone"`
	CustomerName  string      `json:"customer_name"`
	Items         []OrderItem `json:"items"`
	Total         int         `json:"total"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Response represents an incoming message event from a messaging gateway.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
	// HasMedia indicates the message carries downloadable media; MessageID
	// is the gateway handle used to download it.
	HasMedia  bool   `json:"has_media,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// StatusType represents the delivery status of an outbound message.
type StatusType string

const (
	StatusTypeSent      StatusType = "sent"
	StatusTypeDelivered StatusType = "delivered"
	StatusTypeRead      StatusType = "read"
)

// Receipt represents a delivery/read receipt for an outbound message.
type Receipt struct {
	To     string     `json:"to"`
	Status StatusType `json:"status"`
	Time   int64      `json:"time"`
}
