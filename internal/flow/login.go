package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whatsup-com/whatsup-bot/internal/auth"
	"github.com/whatsup-com/whatsup-bot/internal/models"
	"github.com/whatsup-com/whatsup-bot/internal/store"
)

// handleLogin walks the two-step login sequence. Any authentication failure
// restarts the sub-flow from the email step.
func (c *Controller) handleLogin(ctx context.Context, sess *models.Session, body string) {
	switch sess.Step {
	case models.StepLoginEmail:
		email := strings.ToLower(body)
		if !auth.ValidEmail(email) {
			c.send(ctx, sess.Address, msgInvalidEmail)
			return
		}
		sess.Data[models.DataKeyEmail] = email
		sess.Step = models.StepLoginPassword
		c.send(ctx, sess.Address, msgLoginPassword)

	case models.StepLoginPassword:
		c.completeLogin(ctx, sess, body)

	default:
		slog.Warn("Controller.handleLogin: unknown step, restarting flow",
			"address", sess.Address, "step", sess.Step)
		sess.Step = models.StepLoginEmail
		c.send(ctx, sess.Address, msgLoginStart)
	}
}

// completeLogin authenticates the stored email with the supplied password and
// loads the seller profile into the session.
func (c *Controller) completeLogin(ctx context.Context, sess *models.Session, password string) {
	email := sess.Data[models.DataKeyEmail]

	uid, err := c.auth.Authenticate(email, password)
	if err != nil {
		slog.Debug("Controller.completeLogin: authentication failed", "error", err, "address", sess.Address)
		sess.Step = models.StepLoginEmail
		delete(sess.Data, models.DataKeyEmail)
		c.send(ctx, sess.Address, auth.UserMessage(err)+" Let's start over. What's your email address?")
		return
	}

	seller, err := c.store.GetSeller(uid)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("Controller.completeLogin: credential exists without seller profile", "uid", uid)
		sess.ResetFlow()
		sess.ClearDraft()
		c.send(ctx, sess.Address, msgLoginNoProfile)
		return
	}
	if err != nil {
		slog.Error("Controller.completeLogin: seller lookup failed", "error", err, "uid", uid)
		sess.Step = models.StepLoginEmail
		c.send(ctx, sess.Address, msgGenericError)
		return
	}

	sess.IsLoggedIn = true
	sess.Seller = seller
	sess.Flow = models.FlowSellerDashboard
	sess.Step = ""
	sess.ClearDraft()

	slog.Info("Controller.completeLogin: seller logged in", "uid", uid)
	c.send(ctx, sess.Address, fmt.Sprintf(msgLoginComplete, seller.BusinessName))
}
