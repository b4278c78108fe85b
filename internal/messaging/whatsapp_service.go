package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/whatsup-com/whatsup-bot/internal/models"
	"github.com/whatsup-com/whatsup-bot/internal/whatsapp"
)

// maxCachedMedia bounds the number of inbound media references retained for
// later download. Oldest entries are evicted first.
const maxCachedMedia = 256

// WhatsAppService implements Service using the Whatsmeow-based whatsapp client.
type WhatsAppService struct {
	client    whatsapp.Sender
	waClient  *whatsapp.Client // Access to underlying client for event handling
	receipts  chan models.Receipt
	responses chan models.Response
	done      chan struct{}

	mu      sync.RWMutex
	stopped bool

	mediaMu    sync.Mutex
	media      map[string]*waE2E.ImageMessage
	mediaOrder []string
}

// NewWhatsAppService creates a new WhatsAppService wrapping the given Sender.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	service := &WhatsAppService{
		client:    client,
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
		done:      make(chan struct{}),
		media:     make(map[string]*waE2E.ImageMessage),
	}

	// If the client is a full Client (not just an interface), store it for event handling
	if waClient, ok := client.(*whatsapp.Client); ok {
		service.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface client (likely mock)")
	}

	return service
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp phone number.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizePhoneNumber(recipient)
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("WhatsAppService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// Start begins background processing (e.g., event polling).
func (s *WhatsAppService) Start(ctx context.Context) error {
	slog.Debug("WhatsAppService Start invoked")

	if s.waClient != nil {
		go s.handleEvents(ctx)
		slog.Debug("WhatsAppService event handler started")
	} else {
		slog.Debug("WhatsAppService no full client available, skipping event handling (likely mock)")
	}

	return nil
}

// Stop stops background processing. The event callback may still fire while
// whatsmeow shuts down, so channels close after a short grace period and all
// emission paths check the stopped flag first.
func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	slog.Info("WhatsAppService Stop invoked")
	close(s.done)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.receipts)
		close(s.responses)
	}()
	return nil
}

// SendMessage sends a message and emits a sent receipt.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	slog.Debug("WhatsAppService SendMessage invoked", "to", to, "body_length", len(body))
	err := s.client.SendMessage(ctx, to, body)
	if err != nil {
		slog.Error("WhatsAppService SendMessage error", "error", err, "to", to)
		return err
	}
	s.safeEmitReceipt(models.Receipt{To: to, Status: models.StatusTypeSent, Time: time.Now().Unix()})
	return nil
}

// SendImage sends an image with a caption and emits a sent receipt.
func (s *WhatsAppService) SendImage(ctx context.Context, to string, image []byte, mimeType, caption string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	slog.Debug("WhatsAppService SendImage invoked", "to", to, "bytes", len(image))
	err := s.client.SendImage(ctx, to, image, mimeType, caption)
	if err != nil {
		slog.Error("WhatsAppService SendImage error", "error", err, "to", to)
		return err
	}
	s.safeEmitReceipt(models.Receipt{To: to, Status: models.StatusTypeSent, Time: time.Now().Unix()})
	return nil
}

// safeEmitReceipt publishes a receipt without ever blocking the sender.
// Receipts are advisory; when the channel is full the oldest consumers are
// behind and the receipt is dropped.
func (s *WhatsAppService) safeEmitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case s.receipts <- receipt:
	default:
		slog.Debug("WhatsAppService receipts channel full, dropping receipt", "to", receipt.To)
	}
}

// safeEmitResponse pushes an inbound message, dropping it if the consumer
// stays blocked past the channel timeout or the service has stopped.
func (s *WhatsAppService) safeEmitResponse(response models.Response) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		slog.Warn("WhatsAppService dropping inbound response (service stopped)", "from", response.From)
		return
	}

	select {
	case s.responses <- response:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService responses channel blocked, dropping message", "from", response.From)
	}
}

// DownloadMedia fetches the bytes of an image message previously received
// and cached by the event handler.
func (s *WhatsAppService) DownloadMedia(ctx context.Context, messageID string) ([]byte, string, error) {
	s.mediaMu.Lock()
	img, ok := s.media[messageID]
	s.mediaMu.Unlock()
	if !ok {
		return nil, "", ErrMediaUnavailable
	}
	if s.waClient == nil {
		return nil, "", ErrMediaUnavailable
	}

	data, err := s.waClient.Download(ctx, img)
	if err != nil {
		slog.Error("WhatsAppService DownloadMedia failed", "error", err, "message_id", messageID)
		return nil, "", fmt.Errorf("failed to download media: %w", err)
	}
	return data, img.GetMimetype(), nil
}

// Receipts returns a channel of receipt events.
func (s *WhatsAppService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Responses returns a channel of incoming response events.
func (s *WhatsAppService) Responses() <-chan models.Response {
	return s.responses
}

// handleEvents processes WhatsApp events and feeds them into the appropriate channels
func (s *WhatsAppService) handleEvents(ctx context.Context) {
	slog.Debug("WhatsAppService handleEvents starting")

	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Error("WhatsAppService handleEvents: no client available")
		return
	}

	s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			s.handleIncomingMessage(v)
		case *events.Receipt:
			s.handleMessageReceipt(v)
		default:
			// Ignore other event types
		}
	})

	slog.Debug("WhatsAppService event handler registered")

	<-ctx.Done()
	slog.Debug("WhatsAppService handleEvents stopping due to context cancellation")
}

// handleIncomingMessage processes incoming text and image messages.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Message == nil {
		return
	}

	var messageText string
	hasMedia := false

	switch {
	case evt.Message.Conversation != nil:
		messageText = *evt.Message.Conversation
	case evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil:
		messageText = *evt.Message.ExtendedTextMessage.Text
	case evt.Message.ImageMessage != nil:
		hasMedia = true
		messageText = evt.Message.ImageMessage.GetCaption()
		s.cacheMedia(evt.Info.ID, evt.Message.ImageMessage)
	default:
		// Skip other message types (audio, documents, stickers, etc.)
		slog.Debug("WhatsAppService ignoring unsupported message type", "from", evt.Info.Sender.String())
		return
	}

	fromNumber := evt.Info.Sender.User
	if !strings.HasPrefix(fromNumber, "+") {
		fromNumber = "+" + fromNumber
	}

	response := models.Response{
		From:      fromNumber,
		Body:      messageText,
		Time:      evt.Info.Timestamp.Unix(),
		HasMedia:  hasMedia,
		MessageID: evt.Info.ID,
	}

	slog.Debug("WhatsAppService processing incoming message",
		"from", response.From, "body_length", len(response.Body), "has_media", hasMedia)

	s.safeEmitResponse(response)
}

// cacheMedia retains an inbound image reference so it can be downloaded later.
func (s *WhatsAppService) cacheMedia(messageID string, img *waE2E.ImageMessage) {
	s.mediaMu.Lock()
	defer s.mediaMu.Unlock()
	if _, exists := s.media[messageID]; exists {
		return
	}
	s.media[messageID] = img
	s.mediaOrder = append(s.mediaOrder, messageID)
	for len(s.mediaOrder) > maxCachedMedia {
		oldest := s.mediaOrder[0]
		s.mediaOrder = s.mediaOrder[1:]
		delete(s.media, oldest)
	}
}

// handleMessageReceipt processes delivery and read receipts
func (s *WhatsAppService) handleMessageReceipt(evt *events.Receipt) {
	toNumber := evt.MessageSource.Sender.User
	if !strings.HasPrefix(toNumber, "+") {
		toNumber = "+" + toNumber
	}

	var status models.StatusType
	switch evt.Type {
	case events.ReceiptTypeDelivered:
		status = models.StatusTypeDelivered
	case events.ReceiptTypeRead:
		status = models.StatusTypeRead
	case events.ReceiptTypeReadSelf:
		// Skip self-read receipts
		return
	default:
		return
	}

	s.safeEmitReceipt(models.Receipt{
		To:     toNumber,
		Status: status,
		Time:   evt.Timestamp.Unix(),
	})
}
