// Package flow implements the conversational flow controller: a per-address
// state machine that multiplexes the shared WhatsApp message stream into
// independent seller and buyer conversations.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whatsup-com/whatsup-bot/internal/auth"
	"github.com/whatsup-com/whatsup-bot/internal/genai"
	"github.com/whatsup-com/whatsup-bot/internal/media"
	"github.com/whatsup-com/whatsup-bot/internal/messaging"
	"github.com/whatsup-com/whatsup-bot/internal/models"
	"github.com/whatsup-com/whatsup-bot/internal/session"
	"github.com/whatsup-com/whatsup-bot/internal/store"
)

// greetings are the global escape-hatch commands. They take precedence over
// any active flow.
var greetings = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
	"start": true,
}

// Controller consumes inbound message events and drives each conversation's
// state machine.
type Controller struct {
	sessions *session.Manager
	store    store.Store
	auth     auth.Provider
	ai       genai.ClientInterface
	msg      messaging.Service
	media    *media.Store
}

// NewController wires the flow controller to its collaborators.
func NewController(sessions *session.Manager, st store.Store, authProvider auth.Provider, aiClient genai.ClientInterface, msgService messaging.Service, mediaStore *media.Store) *Controller {
	slog.Debug("Controller.NewController: creating flow controller")
	return &Controller{
		sessions: sessions,
		store:    st,
		auth:     authProvider,
		ai:       aiClient,
		msg:      msgService,
		media:    mediaStore,
	}
}

// Run consumes the messaging service's response and receipt channels until
// the context is cancelled or the response channel closes. Each message is
// handled on its own goroutine; per-address ordering is enforced by the
// session manager's address locks. Receipts carry no flow semantics and are
// drained here so the gateway never backs up on them.
func (c *Controller) Run(ctx context.Context) {
	slog.Info("Controller.Run: starting inbound message loop")
	receipts := c.msg.Receipts()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Controller.Run: context cancelled, stopping")
			return
		case resp, ok := <-c.msg.Responses():
			if !ok {
				slog.Info("Controller.Run: responses channel closed, stopping")
				return
			}
			go c.HandleInbound(ctx, resp)
		case r, ok := <-receipts:
			if !ok {
				receipts = nil
				continue
			}
			slog.Debug("Controller.Run: delivery receipt", "to", r.To, "status", r.Status)
		}
	}
}

// HandleInbound is the single entry point for one inbound message. Handling
// for the same address is serialized: the address lock is held until the
// handler, including all its gateway calls, returns.
func (c *Controller) HandleInbound(ctx context.Context, resp models.Response) {
	address, err := c.msg.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		slog.Warn("Controller.HandleInbound: invalid sender address", "error", err, "from", resp.From)
		return
	}

	c.sessions.Lock(address)
	defer c.sessions.Unlock(address)

	sess := c.sessions.GetOrCreate(address)
	body := strings.TrimSpace(resp.Body)
	lower := strings.ToLower(body)

	slog.Debug("Controller.HandleInbound: processing message",
		"address", address, "flow", sess.Flow, "step", sess.Step, "has_media", resp.HasMedia)

	// Global command check: greetings escape any active flow but preserve
	// draft data and login state.
	if greetings[lower] {
		c.handleGreeting(ctx, sess)
		return
	}

	// Main menu selection for logged-out users with no active flow.
	if sess.Flow == "" && !sess.IsLoggedIn {
		if c.handleMenuSelection(ctx, sess, lower) {
			return
		}
	}

	switch sess.Flow {
	case models.FlowSellerRegistration:
		c.handleRegistration(ctx, sess, body)
	case models.FlowSellerLogin:
		c.handleLogin(ctx, sess, body)
	case models.FlowSellerDashboard:
		c.handleDashboard(ctx, sess, body, resp)
	case models.FlowBuyerBrowse:
		c.handleBrowse(ctx, sess, body)
	default:
		c.handleFallback(ctx, sess)
	}
}

// handleGreeting resets flow position and re-anchors the user at their
// role-appropriate menu.
func (c *Controller) handleGreeting(ctx context.Context, sess *models.Session) {
	sess.ResetFlow()
	if sess.IsLoggedIn && sess.Seller != nil {
		sess.Flow = models.FlowSellerDashboard
		c.send(ctx, sess.Address, fmt.Sprintf(msgWelcomeBack, sess.Seller.BusinessName)+"\n\n"+msgDashboardMenu)
		return
	}
	c.send(ctx, sess.Address, msgWelcome)
}

// handleMenuSelection matches the numbered/worded main menu options. Returns
// true if the input was consumed.
func (c *Controller) handleMenuSelection(ctx context.Context, sess *models.Session, lower string) bool {
	switch lower {
	case "1", "register":
		sess.Flow = models.FlowSellerRegistration
		sess.Step = models.StepRegEmail
		c.send(ctx, sess.Address, msgRegStart)
	case "2", "login":
		sess.Flow = models.FlowSellerLogin
		sess.Step = models.StepLoginEmail
		c.send(ctx, sess.Address, msgLoginStart)
	case "3", "browse":
		sess.Flow = models.FlowBuyerBrowse
		sess.Step = models.StepAIIntro
		c.send(ctx, sess.Address, msgBrowseStart)
	case "4", "support":
		c.send(ctx, sess.Address, msgSupport)
	default:
		return false
	}
	return true
}

func (c *Controller) handleFallback(ctx context.Context, sess *models.Session) {
	if sess.IsLoggedIn {
		c.send(ctx, sess.Address, msgFallbackLoggedIn)
		return
	}
	c.send(ctx, sess.Address, msgFallbackLoggedOut)
}

// send delivers a reply, tolerating gateway failure. Session state mutated
// before a failing send is deliberately left in place.
func (c *Controller) send(ctx context.Context, to, body string) {
	if err := c.msg.SendMessage(ctx, to, body); err != nil {
		slog.Error("Controller.send: failed to deliver message", "error", err, "to", to)
	}
}

// sendImage delivers an image reply, tolerating gateway failure.
func (c *Controller) sendImage(ctx context.Context, to string, image []byte, mimeType, caption string) {
	if err := c.msg.SendImage(ctx, to, image, mimeType, caption); err != nil {
		slog.Error("Controller.sendImage: failed to deliver image", "error", err, "to", to)
	}
}
