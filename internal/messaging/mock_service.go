package messaging

import (
	"context"
	"sync"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// SentMessage records an outbound text message captured by MockService.
type SentMessage struct {
	To   string
	Body string
}

// SentImage records an outbound image captured by MockService.
type SentImage struct {
	To       string
	Image    []byte
	MimeType string
	Caption  string
}

// MockService implements Service for tests. It records outbound traffic and
// lets tests inject inbound responses and downloadable media.
type MockService struct {
	mu        sync.Mutex
	sent      []SentMessage
	images    []SentImage
	media     map[string]mockMedia
	sendErr   error
	receipts  chan models.Receipt
	responses chan models.Response
}

type mockMedia struct {
	data []byte
	mime string
}

// NewMockService creates a MockService with buffered channels.
func NewMockService() *MockService {
	return &MockService{
		media:     make(map[string]mockMedia),
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
}

func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

func (m *MockService) SendMessage(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, SentMessage{To: to, Body: body})
	return nil
}

func (m *MockService) SendImage(ctx context.Context, to string, image []byte, mimeType, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.images = append(m.images, SentImage{To: to, Image: image, MimeType: mimeType, Caption: caption})
	return nil
}

func (m *MockService) DownloadMedia(ctx context.Context, messageID string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.media[messageID]
	if !ok {
		return nil, "", ErrMediaUnavailable
	}
	return md.data, md.mime, nil
}

func (m *MockService) Start(ctx context.Context) error { return nil }

func (m *MockService) Stop() error {
	close(m.receipts)
	close(m.responses)
	return nil
}

func (m *MockService) Receipts() <-chan models.Receipt   { return m.receipts }
func (m *MockService) Responses() <-chan models.Response { return m.responses }

// SetSendError makes subsequent sends fail with the given error.
func (m *MockService) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// AddMedia registers downloadable media for a message ID.
func (m *MockService) AddMedia(messageID string, data []byte, mime string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[messageID] = mockMedia{data: data, mime: mime}
}

// InjectResponse pushes an inbound message into the responses channel.
func (m *MockService) InjectResponse(resp models.Response) {
	m.responses <- resp
}

// Sent returns a copy of the recorded outbound text messages.
func (m *MockService) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Images returns a copy of the recorded outbound images.
func (m *MockService) Images() []SentImage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentImage, len(m.images))
	copy(out, m.images)
	return out
}

// Reset clears all recorded traffic.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.images = nil
}
