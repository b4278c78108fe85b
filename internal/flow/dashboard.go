package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// handleDashboard routes input inside the seller dashboard. The menu is
// checked first; otherwise an active product-entry step takes over.
func (c *Controller) handleDashboard(ctx context.Context, sess *models.Session, body string, resp models.Response) {
	if !sess.IsLoggedIn || sess.Seller == nil {
		// A stale dashboard flow without a login, e.g. after a logout race.
		sess.ResetFlow()
		c.send(ctx, sess.Address, msgFallbackLoggedOut)
		return
	}

	switch strings.ToLower(body) {
	case "1", "add product":
		sess.ClearDraft()
		sess.Step = models.StepProductName
		c.send(ctx, sess.Address, msgProductStart)
		return
	case "2", "view products":
		c.sendProductList(ctx, sess)
		return
	case "3", "update profile":
		c.send(ctx, sess.Address, msgProfileStub)
		return
	case "4", "logout":
		c.handleLogout(ctx, sess)
		return
	}

	if models.IsProductEntryStep(sess.Step) {
		c.handleProductEntry(ctx, sess, body, resp)
		return
	}

	c.send(ctx, sess.Address, msgDashboardMenu)
}

// handleLogout signs the seller out. Local state is cleared even when the
// provider-side sign-out fails.
func (c *Controller) handleLogout(ctx context.Context, sess *models.Session) {
	if sess.Seller != nil {
		if err := c.auth.SignOut(sess.Seller.UID); err != nil {
			slog.Warn("Controller.handleLogout: provider sign-out failed", "error", err, "uid", sess.Seller.UID)
		}
	}
	sess.ClearAll()
	c.send(ctx, sess.Address, msgLogoutDone)
}

// sendProductList renders the seller's catalog.
func (c *Controller) sendProductList(ctx context.Context, sess *models.Session) {
	products, err := c.store.ListProductsBySeller(sess.Seller.UID)
	if err != nil {
		slog.Error("Controller.sendProductList: product query failed", "error", err, "uid", sess.Seller.UID)
		c.send(ctx, sess.Address, msgGenericError)
		return
	}
	if len(products) == 0 {
		c.send(ctx, sess.Address, msgNoProducts)
		return
	}

	var b strings.Builder
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s - %d\n", i+1, p.Name, p.Price)
		if p.Description != "" {
			fmt.Fprintf(&b, "   %s\n", p.Description)
		}
		fmt.Fprintf(&b, "   Stock: %d | Photos: %d\n", p.Stock, len(p.Images))
	}
	c.send(ctx, sess.Address, fmt.Sprintf(msgProductsIntro, strings.TrimRight(b.String(), "\n")))
}
