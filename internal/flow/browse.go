package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whatsup-com/whatsup-bot/internal/media"
	"github.com/whatsup-com/whatsup-bot/internal/models"
)

var yesTokens = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true,
	"sure": true, "ok": true, "okay": true,
}

var noTokens = map[string]bool{
	"no": true, "n": true, "nope": true, "cancel": true,
}

// handleBrowse routes input inside the AI-assisted buyer browse flow.
func (c *Controller) handleBrowse(ctx context.Context, sess *models.Session, body string) {
	switch sess.Step {
	case models.StepAIIntro:
		c.handleAIIntro(ctx, sess, body)
	case models.StepAISearch:
		c.handleAISearch(ctx, sess, body)
	case models.StepAIBuyConfirm:
		c.handleAIBuyConfirm(ctx, sess, body)
	case models.StepAIBuyerDetails:
		c.handleAIBuyerDetails(ctx, sess, body)
	default:
		sess.Step = models.StepAIIntro
		c.send(ctx, sess.Address, msgBrowseStart)
	}
}

// handleAIIntro fetches the full active catalog, caches it on the session,
// and asks the AI responder to match the buyer's free-text query against it.
// Also invoked directly by handleAISearch on a selection miss (same-turn
// re-entry, no new inbound message required).
func (c *Controller) handleAIIntro(ctx context.Context, sess *models.Session, query string) {
	if query == "" {
		c.send(ctx, sess.Address, msgBrowseStart)
		return
	}
	sess.Data[models.DataKeyBuyerQuery] = query

	products, err := c.store.ListActiveProducts()
	if err != nil {
		slog.Error("Controller.handleAIIntro: catalog query failed", "error", err)
		c.send(ctx, sess.Address, msgGenericError)
		return
	}
	if len(products) == 0 {
		sess.ResetBrowse()
		c.send(ctx, sess.Address, msgBrowseEmpty)
		return
	}
	sess.Catalog = products

	userPrompt := fmt.Sprintf("Catalog:\n%s\n\nBuyer query: %s", formatCatalog(products), query)
	reply, err := c.ai.Complete(ctx, aiSystemPrompt, userPrompt)
	if err != nil {
		slog.Warn("Controller.handleAIIntro: AI responder failed, continuing without it", "error", err)
		reply = msgAIUnavailable
	}

	sess.Step = models.StepAISearch
	c.send(ctx, sess.Address, reply+"\n\n"+msgBrowseHint)
}

// handleAISearch resolves the buyer's reply against the cached catalog:
// numeric index first, then exact name, then substring. A miss is treated as
// a fresh query and re-enters the intro logic within the same inbound event.
func (c *Controller) handleAISearch(ctx context.Context, sess *models.Session, body string) {
	if len(sess.Catalog) == 0 {
		sess.Step = models.StepAIIntro
		c.handleAIIntro(ctx, sess, body)
		return
	}

	if product := resolveSelection(sess.Catalog, body); product != nil {
		sess.Selected = product
		sess.Step = models.StepAIBuyConfirm
		c.sendProductDetails(ctx, sess, product)
		return
	}

	c.handleAIIntro(ctx, sess, body)
}

// resolveSelection picks a product from the catalog by 1-based index, exact
// case-insensitive name, or substring match, in that order. Numeric input
// outside the catalog range falls through to the name matchers, so a product
// with a numeric name stays reachable.
func resolveSelection(catalog []models.Product, input string) *models.Product {
	if idx, err := strconv.Atoi(input); err == nil && idx >= 1 && idx <= len(catalog) {
		return &catalog[idx-1]
	}

	lower := strings.ToLower(input)
	for i := range catalog {
		if strings.EqualFold(catalog[i].Name, input) {
			return &catalog[i]
		}
	}
	for i := range catalog {
		if strings.Contains(strings.ToLower(catalog[i].Name), lower) {
			return &catalog[i]
		}
	}
	return nil
}

// sendProductDetails renders the selected product and asks for buy
// confirmation, attaching the first product photo when one exists.
func (c *Controller) sendProductDetails(ctx context.Context, sess *models.Session, product *models.Product) {
	details := fmt.Sprintf(msgBrowseDetails, product.Name, product.Price, product.Stock, product.Description)

	if len(product.Images) > 0 && c.media != nil {
		if data, err := c.media.Load(product.Images[0]); err == nil {
			c.sendImage(ctx, sess.Address, data, media.MimeTypeOf(product.Images[0]), details)
			return
		} else {
			slog.Warn("Controller.sendProductDetails: failed to load product image, sending text only",
				"error", err, "product", product.ID)
		}
	}
	c.send(ctx, sess.Address, details)
}

// handleAIBuyConfirm accepts yes/no-family tokens; anything else re-prompts
// without changing the step.
func (c *Controller) handleAIBuyConfirm(ctx context.Context, sess *models.Session, body string) {
	lower := strings.ToLower(body)
	switch {
	case yesTokens[lower]:
		sess.Step = models.StepAIBuyerDetails
		c.send(ctx, sess.Address, msgBrowseConfirm)
	case noTokens[lower]:
		sess.ClearDraft()
		sess.ResetBrowse()
		c.send(ctx, sess.Address, msgBrowseDecline)
	default:
		c.send(ctx, sess.Address, msgBrowseReconfirm)
	}
}

// handleAIBuyerDetails captures the buyer's name, records the order, and
// notifies the owning seller best-effort. The buyer is always told the
// interest was sent; a failed seller lookup is logged, not surfaced.
func (c *Controller) handleAIBuyerDetails(ctx context.Context, sess *models.Session, body string) {
	if body == "" {
		c.send(ctx, sess.Address, msgBrowseConfirm)
		return
	}
	product := sess.Selected
	if product == nil {
		slog.Warn("Controller.handleAIBuyerDetails: no selected product, resetting", "address", sess.Address)
		sess.ClearDraft()
		sess.ResetBrowse()
		c.send(ctx, sess.Address, msgFallbackLoggedOut)
		return
	}
	buyerName := body

	now := time.Now()
	order := models.Order{
		ID:            uuid.New().String(),
		SellerID:      product.SellerID,
		CustomerPhone: sess.Address,
		CustomerName:  buyerName,
		Items: []models.OrderItem{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    1,
			Price:       product.Price,
		}},
		Total:     product.Price,
		Status:    models.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.CreateOrder(order); err != nil {
		slog.Error("Controller.handleAIBuyerDetails: order write failed", "error", err, "product", product.ID)
	}

	c.notifySeller(ctx, product, buyerName, sess.Address)

	c.send(ctx, sess.Address, fmt.Sprintf(msgBrowseDone, buyerName, product.Name))
	sess.ClearDraft()
	sess.ResetBrowse()
}

// notifySeller delivers an order-interest message to the product's owning
// seller, if their notification address can be resolved.
func (c *Controller) notifySeller(ctx context.Context, product *models.Product, buyerName, buyerAddress string) {
	seller, err := c.store.GetSeller(product.SellerID)
	if err != nil {
		slog.Warn("Controller.notifySeller: seller lookup failed", "error", err, "seller", product.SellerID)
		return
	}
	if seller.WhatsAppAddress == "" {
		slog.Warn("Controller.notifySeller: seller has no notification address", "seller", seller.UID)
		return
	}
	notification := fmt.Sprintf("🔔 New order interest!\nProduct: %s\nBuyer: %s\nContact: %s",
		product.Name, buyerName, buyerAddress)
	if err := c.msg.SendMessage(ctx, seller.WhatsAppAddress, notification); err != nil {
		slog.Warn("Controller.notifySeller: notification send failed", "error", err, "seller", seller.UID)
	}
}

// formatCatalog renders the catalog as the enumerated list embedded in AI
// prompts and referenced by numeric selection.
func formatCatalog(products []models.Product) string {
	var b strings.Builder
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s - price %d, stock %d", i+1, p.Name, p.Price, p.Stock)
		if p.Description != "" {
			fmt.Fprintf(&b, " (%s)", p.Description)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
