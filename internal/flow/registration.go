package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/auth"
	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// skipSentinel lets users leave optional free-text fields empty.
const skipSentinel = "skip"

// handleRegistration walks the linear seller registration step sequence.
// Invalid input re-prompts at the same step; there is no retry limit.
func (c *Controller) handleRegistration(ctx context.Context, sess *models.Session, body string) {
	switch sess.Step {
	case models.StepRegEmail:
		if !auth.ValidEmail(strings.ToLower(body)) {
			c.send(ctx, sess.Address, msgInvalidEmail)
			return
		}
		sess.Data[models.DataKeyEmail] = strings.ToLower(body)
		sess.Step = models.StepRegPassword
		c.send(ctx, sess.Address, msgRegPassword)

	case models.StepRegPassword:
		if !auth.ValidPassword(body) {
			c.send(ctx, sess.Address, msgInvalidPassword)
			return
		}
		sess.Data[models.DataKeyPassword] = body
		sess.Step = models.StepRegBusinessName
		c.send(ctx, sess.Address, msgRegBusinessName)

	case models.StepRegBusinessName:
		if body == "" {
			c.send(ctx, sess.Address, msgEmptyInput)
			return
		}
		sess.Data[models.DataKeyBusinessName] = body
		sess.Step = models.StepRegOwnerName
		c.send(ctx, sess.Address, msgRegOwnerName)

	case models.StepRegOwnerName:
		if body == "" {
			c.send(ctx, sess.Address, msgEmptyInput)
			return
		}
		sess.Data[models.DataKeyOwnerName] = body
		sess.Step = models.StepRegAddress
		c.send(ctx, sess.Address, msgRegAddress)

	case models.StepRegAddress:
		if body == "" {
			c.send(ctx, sess.Address, msgEmptyInput)
			return
		}
		sess.Data[models.DataKeyAddress] = body
		sess.Step = models.StepRegCategory
		c.send(ctx, sess.Address, msgRegCategory)

	case models.StepRegCategory:
		if body == "" {
			c.send(ctx, sess.Address, msgEmptyInput)
			return
		}
		sess.Data[models.DataKeyCategory] = body
		sess.Step = models.StepRegDescription
		c.send(ctx, sess.Address, msgRegDescription)

	case models.StepRegDescription:
		description := body
		if strings.EqualFold(body, skipSentinel) {
			description = ""
		}
		sess.Data[models.DataKeyDescription] = description
		c.completeRegistration(ctx, sess)

	default:
		slog.Warn("Controller.handleRegistration: unknown step, restarting flow",
			"address", sess.Address, "step", sess.Step)
		sess.Step = models.StepRegEmail
		c.send(ctx, sess.Address, msgRegStart)
	}
}

// completeRegistration creates the identity credential, persists the seller
// profile, and drops the user into the dashboard.
func (c *Controller) completeRegistration(ctx context.Context, sess *models.Session) {
	email := sess.Data[models.DataKeyEmail]

	uid, err := c.auth.CreateAccount(email, sess.Data[models.DataKeyPassword])
	if err != nil {
		slog.Warn("Controller.completeRegistration: account creation failed",
			"error", err, "address", sess.Address)
		sess.ResetFlow()
		sess.ClearDraft()
		c.send(ctx, sess.Address, auth.UserMessage(err)+" Type hi to start over.")
		return
	}

	seller := models.Seller{
		UID:             uid,
		Email:           email,
		BusinessName:    sess.Data[models.DataKeyBusinessName],
		OwnerName:       sess.Data[models.DataKeyOwnerName],
		Phone:           sess.Address,
		Address:         sess.Data[models.DataKeyAddress],
		Category:        sess.Data[models.DataKeyCategory],
		Description:     sess.Data[models.DataKeyDescription],
		Status:          models.SellerStatusPending,
		WhatsAppAddress: sess.Address,
		CreatedAt:       time.Now(),
	}
	if err := c.store.CreateSeller(seller); err != nil {
		// The credential already exists; the profile write failed. The
		// orphaned credential is logged, not repaired (no cross-store
		// transaction is available).
		slog.Error("Controller.completeRegistration: seller profile write failed after credential creation",
			"error", err, "uid", uid)
		sess.ResetFlow()
		sess.ClearDraft()
		c.send(ctx, sess.Address, msgGenericError+" Type hi to start over.")
		return
	}

	sess.IsLoggedIn = true
	sess.Seller = &seller
	sess.Flow = models.FlowSellerDashboard
	sess.Step = ""
	sess.ClearDraft()

	slog.Info("Controller.completeRegistration: seller registered",
		"uid", uid, "business", seller.BusinessName)
	c.send(ctx, sess.Address, fmt.Sprintf(msgRegComplete, seller.BusinessName))
}
