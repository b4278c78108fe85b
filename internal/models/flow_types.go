// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType identifies a top-level conversation flow. The empty value means
// the user is at the main menu with no flow active.
type FlowType string

// StepType identifies a position within a flow's step sequence. A StepType is
// only meaningful relative to the session's current FlowType.
type StepType string

// DataKey is a key for storing step-specific draft data on a session.
type DataKey string

// Flow type constants.
const (
	FlowSellerRegistration FlowType = "seller_registration"
	FlowSellerLogin        FlowType = "seller_login"
	FlowSellerDashboard    FlowType = "seller_dashboard"
	FlowBuyerBrowse        FlowType = "buyer_browse"
)

// Registration flow steps, visited in declaration order.
const (
	StepRegEmail        StepType = "email"
	StepRegPassword     StepType = "password"
	StepRegBusinessName StepType = "businessName"
	StepRegOwnerName    StepType = "ownerName"
	StepRegAddress      StepType = "address"
	StepRegCategory     StepType = "category"
	StepRegDescription  StepType = "description"
)

// Login flow steps.
const (
	StepLoginEmail    StepType = "login_email"
	StepLoginPassword StepType = "login_password"
)

// Product entry steps (nested inside the dashboard flow).
const (
	StepProductName        StepType = "product_name"
	StepProductPrice       StepType = "product_price"
	StepProductDescription StepType = "product_description"
	StepProductStock       StepType = "product_stock"
	StepProductImages      StepType = "product_images"
)

// Buyer browse steps.
const (
	StepAIIntro        StepType = "ai_intro"
	StepAISearch       StepType = "ai_search"
	StepAIBuyConfirm   StepType = "ai_buy_confirm"
	StepAIBuyerDetails StepType = "ai_buyer_details"
)

// Data key constants for draft data accumulated across steps.
const (
	DataKeyEmail              DataKey = "email"
	DataKeyPassword           DataKey = "password"
	DataKeyBusinessName       DataKey = "businessName"
	DataKeyOwnerName          DataKey = "ownerName"
	DataKeyAddress            DataKey = "address"
	DataKeyCategory           DataKey = "category"
	DataKeyDescription        DataKey = "description"
	DataKeyProductName        DataKey = "productName"
	DataKeyProductPrice       DataKey = "productPrice"
	DataKeyProductDescription DataKey = "productDescription"
	DataKeyProductStock       DataKey = "productStock"
	DataKeyBuyerQuery         DataKey = "buyerQuery"
)

// RegistrationSteps lists the registration step sequence in order.
var RegistrationSteps = []StepType{
	StepRegEmail,
	StepRegPassword,
	StepRegBusinessName,
	StepRegOwnerName,
	StepRegAddress,
	StepRegCategory,
	StepRegDescription,
}

// ProductEntrySteps lists the product entry step sequence in order.
var ProductEntrySteps = []StepType{
	StepProductName,
	StepProductPrice,
	StepProductDescription,
	StepProductStock,
	StepProductImages,
}

// IsProductEntryStep reports whether s belongs to the product entry sub-flow.
func IsProductEntryStep(s StepType) bool {
	for _, step := range ProductEntrySteps {
		if s == step {
			return true
		}
	}
	return false
}
