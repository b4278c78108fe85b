// Package messaging provides pluggable message delivery backends for the bot.
package messaging

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// Constants for messaging service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for receipt and response channels
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when operations are attempted on a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

// ErrMediaUnavailable is returned when a media download is requested for a
// message the service no longer holds, or when the backend cannot fetch media.
var ErrMediaUnavailable = errors.New("media unavailable")

// phoneNumberRegex matches every non-digit character for canonicalization.
var phoneNumberRegex = regexp.MustCompile(`\D`)

// Service defines a pluggable message delivery abstraction.
// It supports sending messages and provides channels for receipt and response events.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	// Returns the canonicalized recipient and an error if validation fails.
	// This allows each service to implement its own recipient validation rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// SendImage sends image bytes to a recipient with an optional caption.
	SendImage(ctx context.Context, to string, image []byte, mimeType, caption string) error

	// DownloadMedia fetches the bytes and MIME type of media attached to a
	// previously received message, identified by its message ID.
	DownloadMedia(ctx context.Context, messageID string) ([]byte, string, error)

	// Start begins any background processing (e.g., polling for events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Receipts returns a channel of receipt events (sent, delivered, read).
	Receipts() <-chan models.Receipt

	// Responses returns a channel of incoming messages.
	Responses() <-chan models.Response
}

// canonicalizePhoneNumber strips non-digit characters and validates the
// remaining digits form a plausible phone number.
func canonicalizePhoneNumber(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", errors.New("invalid phone number: no digits found in recipient")
	}
	if len(canonical) < 6 {
		return "", errors.New("invalid phone number: too short (minimum 6 digits required)")
	}
	return canonical, nil
}
