package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

const doneSentinel = "done"

// handleProductEntry walks the nested product-entry step sequence inside the
// dashboard flow.
func (c *Controller) handleProductEntry(ctx context.Context, sess *models.Session, body string, resp models.Response) {
	switch sess.Step {
	case models.StepProductName:
		if body == "" {
			c.send(ctx, sess.Address, msgEmptyInput)
			return
		}
		sess.Data[models.DataKeyProductName] = body
		sess.Step = models.StepProductPrice
		c.send(ctx, sess.Address, msgProductPrice)

	case models.StepProductPrice:
		price, err := strconv.Atoi(body)
		if err != nil || price <= 0 {
			c.send(ctx, sess.Address, msgInvalidPrice)
			return
		}
		sess.Data[models.DataKeyProductPrice] = strconv.Itoa(price)
		sess.Step = models.StepProductDescription
		c.send(ctx, sess.Address, msgProductDescription)

	case models.StepProductDescription:
		description := body
		if strings.EqualFold(body, skipSentinel) {
			description = ""
		}
		sess.Data[models.DataKeyProductDescription] = description
		sess.Step = models.StepProductStock
		c.send(ctx, sess.Address, msgProductStock)

	case models.StepProductStock:
		stock, err := strconv.Atoi(body)
		if err != nil || stock < 0 {
			c.send(ctx, sess.Address, msgInvalidStock)
			return
		}
		sess.Data[models.DataKeyProductStock] = strconv.Itoa(stock)
		sess.Step = models.StepProductImages
		c.send(ctx, sess.Address, msgProductImages)

	case models.StepProductImages:
		c.handleProductImages(ctx, sess, body, resp)

	default:
		slog.Warn("Controller.handleProductEntry: unknown step", "address", sess.Address, "step", sess.Step)
		sess.Step = ""
		c.send(ctx, sess.Address, msgDashboardMenu)
	}
}

// handleProductImages runs the image sub-loop: media messages accumulate
// references until the seller sends done or skip.
func (c *Controller) handleProductImages(ctx context.Context, sess *models.Session, body string, resp models.Response) {
	lower := strings.ToLower(body)
	if lower == doneSentinel || lower == skipSentinel {
		c.createProduct(ctx, sess)
		return
	}

	if !resp.HasMedia {
		c.send(ctx, sess.Address, msgProductImageReject)
		return
	}

	data, mimeType, err := c.msg.DownloadMedia(ctx, resp.MessageID)
	if err != nil {
		slog.Error("Controller.handleProductImages: media download failed",
			"error", err, "address", sess.Address, "message_id", resp.MessageID)
		c.send(ctx, sess.Address, msgGenericError)
		return
	}

	ref, err := c.media.Save(data, mimeType)
	if err != nil {
		slog.Error("Controller.handleProductImages: media save failed", "error", err, "address", sess.Address)
		c.send(ctx, sess.Address, msgGenericError)
		return
	}

	sess.DraftImages = append(sess.DraftImages, ref)
	c.send(ctx, sess.Address, fmt.Sprintf(msgProductImageCount, len(sess.DraftImages)))
}

// createProduct persists the completed draft. The seller record is re-fetched
// so the category and lifecycle status reflect any dashboard-side changes
// made mid-conversation.
func (c *Controller) createProduct(ctx context.Context, sess *models.Session) {
	seller, err := c.store.GetSeller(sess.Seller.UID)
	if err != nil {
		slog.Error("Controller.createProduct: seller re-fetch failed", "error", err, "uid", sess.Seller.UID)
		seller = sess.Seller
	} else {
		sess.Seller = seller
	}

	if seller.Status == models.SellerStatusRejected || seller.Status == models.SellerStatusSuspended {
		slog.Warn("Controller.createProduct: seller not allowed to add products",
			"uid", seller.UID, "status", seller.Status)
		sess.Step = ""
		sess.ClearDraft()
		c.send(ctx, sess.Address, fmt.Sprintf(msgSellerInactive, seller.Status))
		return
	}

	price, _ := strconv.Atoi(sess.Data[models.DataKeyProductPrice])
	stock, _ := strconv.Atoi(sess.Data[models.DataKeyProductStock])

	now := time.Now()
	product := models.Product{
		ID:          uuid.New().String(),
		SellerID:    seller.UID,
		Name:        sess.Data[models.DataKeyProductName],
		Description: sess.Data[models.DataKeyProductDescription],
		Price:       price,
		Category:    seller.Category,
		Stock:       stock,
		Images:      append([]string(nil), sess.DraftImages...),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Validate(); err != nil {
		slog.Error("Controller.createProduct: draft failed validation", "error", err, "address", sess.Address)
		sess.Step = ""
		sess.ClearDraft()
		c.send(ctx, sess.Address, msgGenericError)
		return
	}

	if err := c.store.CreateProduct(product); err != nil {
		slog.Error("Controller.createProduct: product write failed", "error", err, "id", product.ID)
		sess.Step = ""
		sess.ClearDraft()
		c.send(ctx, sess.Address, msgGenericError)
		return
	}

	sess.Step = ""
	sess.ClearDraft()

	slog.Info("Controller.createProduct: product created",
		"id", product.ID, "seller", product.SellerID, "images", len(product.Images))
	c.send(ctx, sess.Address, fmt.Sprintf(msgProductCreated, product.Name))
}
