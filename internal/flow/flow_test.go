package flow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/auth"
	"github.com/whatsup-com/whatsup-bot/internal/media"
	"github.com/whatsup-com/whatsup-bot/internal/messaging"
	"github.com/whatsup-com/whatsup-bot/internal/models"
	"github.com/whatsup-com/whatsup-bot/internal/session"
	"github.com/whatsup-com/whatsup-bot/internal/store"
)

const (
	buyerAddr      = "+15550001111"
	buyerCanonical = "15550001111"
	sellerAddr     = "15552223333"
)

type aiCall struct {
	system string
	user   string
}

// mockAI records prompts and returns a canned reply.
type mockAI struct {
	mu    sync.Mutex
	calls []aiCall
	reply string
	err   error
}

func (m *mockAI) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, aiCall{system: systemPrompt, user: userPrompt})
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockAI) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type fixture struct {
	ctrl     *Controller
	msg      *messaging.MockService
	store    *store.InMemoryStore
	auth     *auth.StoreProvider
	ai       *mockAI
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewInMemoryStore()
	authProvider := auth.NewStoreProvider(st)
	msgService := messaging.NewMockService()
	aiClient := &mockAI{reply: "Here is what I found."}
	sessions := session.NewManager()
	t.Cleanup(sessions.Stop)

	mediaStore, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create media store: %v", err)
	}

	ctrl := NewController(sessions, st, authProvider, aiClient, msgService, mediaStore)
	return &fixture{
		ctrl:     ctrl,
		msg:      msgService,
		store:    st,
		auth:     authProvider,
		ai:       aiClient,
		sessions: sessions,
	}
}

// say delivers one inbound text message and returns the session afterwards.
func (f *fixture) say(t *testing.T, from, body string) *models.Session {
	t.Helper()
	f.ctrl.HandleInbound(context.Background(), models.Response{
		From: from,
		Body: body,
		Time: time.Now().Unix(),
	})
	canonical, err := f.msg.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		t.Fatalf("failed to canonicalize %q: %v", from, err)
	}
	sess := f.sessions.Peek(canonical)
	if sess == nil {
		t.Fatalf("no session for %q after message %q", canonical, body)
	}
	return sess
}

// sayMedia delivers one inbound media message with downloadable bytes.
func (f *fixture) sayMedia(t *testing.T, from, caption, messageID string, data []byte) *models.Session {
	t.Helper()
	f.msg.AddMedia(messageID, data, "image/jpeg")
	f.ctrl.HandleInbound(context.Background(), models.Response{
		From:      from,
		Body:      caption,
		Time:      time.Now().Unix(),
		HasMedia:  true,
		MessageID: messageID,
	})
	canonical, _ := f.msg.ValidateAndCanonicalizeRecipient(from)
	return f.sessions.Peek(canonical)
}

// lastSent returns the most recent outbound text message.
func (f *fixture) lastSent(t *testing.T) messaging.SentMessage {
	t.Helper()
	sent := f.msg.Sent()
	if len(sent) == 0 {
		t.Fatal("no outbound messages recorded")
	}
	return sent[len(sent)-1]
}

// registerSeller runs the full registration conversation for sellerAddr.
func (f *fixture) registerSeller(t *testing.T) *models.Session {
	t.Helper()
	f.say(t, sellerAddr, "hi")
	f.say(t, sellerAddr, "1")
	f.say(t, sellerAddr, "seller@example.com")
	f.say(t, sellerAddr, "secret1")
	f.say(t, sellerAddr, "Acme Goods")
	f.say(t, sellerAddr, "Jo")
	f.say(t, sellerAddr, "1 Main St")
	f.say(t, sellerAddr, "Food")
	return f.say(t, sellerAddr, "A family store")
}

func TestGreetingIsIdempotentAcrossStates(t *testing.T) {
	f := newFixture(t)

	// Mid-registration, a greeting escapes to the menu without logging in.
	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "1")
	f.say(t, buyerAddr, "a@b.com")
	sess := f.say(t, buyerAddr, "hi")
	if sess.Flow != "" {
		t.Errorf("expected empty flow after greeting while logged out, got %q", sess.Flow)
	}
	if sess.Step != "" {
		t.Errorf("expected empty step after greeting, got %q", sess.Step)
	}
	if sess.IsLoggedIn {
		t.Error("greeting must not change login state")
	}

	// Logged in, a greeting lands on the dashboard and keeps the seller.
	sess = f.registerSeller(t)
	if !sess.IsLoggedIn {
		t.Fatal("expected registration to log the seller in")
	}
	sess = f.say(t, sellerAddr, "hello")
	if sess.Flow != models.FlowSellerDashboard {
		t.Errorf("expected dashboard flow after greeting while logged in, got %q", sess.Flow)
	}
	if sess.Step != "" {
		t.Errorf("expected empty step after greeting, got %q", sess.Step)
	}
	if !sess.IsLoggedIn || sess.Seller == nil {
		t.Error("greeting must preserve login state and seller snapshot")
	}
}

func TestRegistrationStepMonotonicity(t *testing.T) {
	f := newFixture(t)
	f.say(t, sellerAddr, "hi")
	f.say(t, sellerAddr, "1")

	inputs := []string{"seller@example.com", "secret1", "Acme", "Jo", "1 Main St", "Food"}
	wantSteps := []models.StepType{
		models.StepRegPassword,
		models.StepRegBusinessName,
		models.StepRegOwnerName,
		models.StepRegAddress,
		models.StepRegCategory,
		models.StepRegDescription,
	}
	for i, input := range inputs {
		sess := f.say(t, sellerAddr, input)
		if sess.Step != wantSteps[i] {
			t.Fatalf("after input %d (%q): step = %q, want %q", i, input, sess.Step, wantSteps[i])
		}
	}
}

func TestRegistrationInvalidInputReprompts(t *testing.T) {
	f := newFixture(t)
	f.say(t, sellerAddr, "hi")
	f.say(t, sellerAddr, "1")

	before := len(f.msg.Sent())
	sess := f.say(t, sellerAddr, "not-an-email")
	if sess.Step != models.StepRegEmail {
		t.Errorf("invalid email must not advance step, got %q", sess.Step)
	}
	if got := len(f.msg.Sent()) - before; got != 1 {
		t.Errorf("expected exactly 1 outbound corrective message, got %d", got)
	}
	if f.lastSent(t).Body != msgInvalidEmail {
		t.Errorf("unexpected corrective message %q", f.lastSent(t).Body)
	}

	sess = f.say(t, sellerAddr, "a@b.com")
	if sess.Step != models.StepRegPassword {
		t.Fatalf("valid email should advance to password, got %q", sess.Step)
	}
	sess = f.say(t, sellerAddr, "short")
	if sess.Step != models.StepRegPassword {
		t.Errorf("short password must not advance step, got %q", sess.Step)
	}
}

func TestRegistrationScenarioSkipDescription(t *testing.T) {
	f := newFixture(t)
	f.say(t, sellerAddr, "hi")
	f.say(t, sellerAddr, "1")
	f.say(t, sellerAddr, "a@b.com")
	f.say(t, sellerAddr, "secret1")
	f.say(t, sellerAddr, "Acme")
	f.say(t, sellerAddr, "Jo")
	f.say(t, sellerAddr, "1 Main St")
	f.say(t, sellerAddr, "Food")
	sess := f.say(t, sellerAddr, "skip")

	seller, err := f.store.GetSellerByEmail("a@b.com")
	if err != nil {
		t.Fatalf("expected seller to be created: %v", err)
	}
	if seller.Description != "" {
		t.Errorf("skip must map description to empty string, got %q", seller.Description)
	}
	if seller.Status != models.SellerStatusPending {
		t.Errorf("new seller status = %q, want pending", seller.Status)
	}
	if seller.WhatsAppAddress != sellerAddr {
		t.Errorf("seller notification address = %q, want %q", seller.WhatsAppAddress, sellerAddr)
	}
	if !sess.IsLoggedIn {
		t.Error("expected session to be logged in after registration")
	}
	if sess.Flow != models.FlowSellerDashboard {
		t.Errorf("expected dashboard flow, got %q", sess.Flow)
	}
	if sess.IsLoggedIn && sess.Seller == nil {
		t.Error("isLoggedIn implies seller != nil")
	}
}

func TestRegistrationDuplicateEmailResetsFlow(t *testing.T) {
	f := newFixture(t)
	f.registerSeller(t)
	f.say(t, sellerAddr, "4") // logout

	f.say(t, sellerAddr, "hi")
	f.say(t, sellerAddr, "1")
	f.say(t, sellerAddr, "seller@example.com")
	f.say(t, sellerAddr, "other1")
	f.say(t, sellerAddr, "B")
	f.say(t, sellerAddr, "C")
	f.say(t, sellerAddr, "D")
	f.say(t, sellerAddr, "E")
	sess := f.say(t, sellerAddr, "skip")

	if sess.IsLoggedIn {
		t.Error("duplicate registration must not log in")
	}
	if sess.Flow != "" || sess.Step != "" {
		t.Errorf("duplicate registration must reset flow/step, got %q/%q", sess.Flow, sess.Step)
	}
	if !strings.Contains(f.lastSent(t).Body, "already registered") {
		t.Errorf("expected duplicate-email message, got %q", f.lastSent(t).Body)
	}
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	f.registerSeller(t)
	f.say(t, sellerAddr, "4") // logout
	sess := f.sessions.Peek(sellerAddr)
	if sess.IsLoggedIn || sess.Seller != nil {
		t.Fatal("logout must clear login state and seller")
	}

	f.say(t, sellerAddr, "hi")
	f.say(t, sellerAddr, "2")
	f.say(t, sellerAddr, "seller@example.com")

	// Wrong password restarts from the email step.
	sess = f.say(t, sellerAddr, "wrongpass")
	if sess.Step != models.StepLoginEmail {
		t.Errorf("failed login should restart at email step, got %q", sess.Step)
	}
	if !strings.Contains(f.lastSent(t).Body, "Incorrect password") {
		t.Errorf("expected wrong-password message, got %q", f.lastSent(t).Body)
	}

	f.say(t, sellerAddr, "seller@example.com")
	sess = f.say(t, sellerAddr, "secret1")
	if !sess.IsLoggedIn {
		t.Fatal("expected login to succeed")
	}
	if sess.Seller == nil {
		t.Fatal("isLoggedIn implies seller != nil")
	}
	if sess.Flow != models.FlowSellerDashboard {
		t.Errorf("expected dashboard flow after login, got %q", sess.Flow)
	}
}

func TestProductPriceValidation(t *testing.T) {
	f := newFixture(t)
	f.registerSeller(t)
	f.say(t, sellerAddr, "1") // add product
	f.say(t, sellerAddr, "Red Running Shoes")

	for _, bad := range []string{"-5", "0", "cheap"} {
		before := len(f.msg.Sent())
		sess := f.say(t, sellerAddr, bad)
		if sess.Step != models.StepProductPrice {
			t.Errorf("input %q must not advance from product_price, got %q", bad, sess.Step)
		}
		if got := len(f.msg.Sent()) - before; got != 1 {
			t.Errorf("input %q: expected 1 corrective message, got %d", bad, got)
		}
	}

	sess := f.say(t, sellerAddr, "500")
	if sess.Step != models.StepProductDescription {
		t.Errorf("valid price should advance to description, got %q", sess.Step)
	}
}

func TestProductDraftCompleteness(t *testing.T) {
	f := newFixture(t)
	sess := f.registerSeller(t)
	sellerUID := sess.Seller.UID

	f.say(t, sellerAddr, "1")
	f.say(t, sellerAddr, "Red Running Shoes")
	f.say(t, sellerAddr, "500")
	f.say(t, sellerAddr, "Comfortable and fast")
	f.say(t, sellerAddr, "10")

	// No partial product is written before the images step completes.
	products, err := f.store.ListProductsBySeller(sellerUID)
	if err != nil {
		t.Fatalf("product query failed: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("no product should be persisted mid-draft, found %d", len(products))
	}

	sess = f.say(t, sellerAddr, "skip")
	if sess.Step != "" {
		t.Errorf("completed product entry should clear step, got %q", sess.Step)
	}
	products, _ = f.store.ListProductsBySeller(sellerUID)
	if len(products) != 1 {
		t.Fatalf("expected exactly 1 product, found %d", len(products))
	}
	p := products[0]
	if p.Name != "Red Running Shoes" || p.Price != 500 || p.Stock != 10 {
		t.Errorf("unexpected product %+v", p)
	}
	if p.Category != "Food" {
		t.Errorf("product should inherit seller category, got %q", p.Category)
	}
	if !p.IsActive {
		t.Error("new product should be active")
	}
}

func TestProductImageLoop(t *testing.T) {
	f := newFixture(t)
	sess := f.registerSeller(t)
	sellerUID := sess.Seller.UID

	f.say(t, sellerAddr, "1")
	f.say(t, sellerAddr, "Sneakers")
	f.say(t, sellerAddr, "900")
	f.say(t, sellerAddr, "skip")
	f.say(t, sellerAddr, "7")

	sess = f.sayMedia(t, sellerAddr, "", "msg-1", []byte("jpegdata-1"))
	if len(sess.DraftImages) != 1 {
		t.Fatalf("expected 1 draft image, got %d", len(sess.DraftImages))
	}
	if !strings.Contains(f.lastSent(t).Body, "1 photo") {
		t.Errorf("expected running count acknowledgment, got %q", f.lastSent(t).Body)
	}

	sess = f.sayMedia(t, sellerAddr, "", "msg-2", []byte("jpegdata-2"))
	if len(sess.DraftImages) != 2 {
		t.Fatalf("expected 2 draft images, got %d", len(sess.DraftImages))
	}

	// Plain text that is not done/skip is rejected, step unchanged.
	sess = f.say(t, sellerAddr, "what now")
	if sess.Step != models.StepProductImages {
		t.Errorf("non-media input must not leave images step, got %q", sess.Step)
	}

	sess = f.say(t, sellerAddr, "done")
	products, _ := f.store.ListProductsBySeller(sellerUID)
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if len(products[0].Images) != 2 {
		t.Errorf("expected 2 image references on product, got %d", len(products[0].Images))
	}
	if len(sess.DraftImages) != 0 {
		t.Error("draft images should be cleared after product creation")
	}
}

func TestProductEntryBlockedForSuspendedSeller(t *testing.T) {
	f := newFixture(t)
	sess := f.registerSeller(t)
	sellerUID := sess.Seller.UID

	f.say(t, sellerAddr, "1")
	f.say(t, sellerAddr, "Sneakers")
	f.say(t, sellerAddr, "900")
	f.say(t, sellerAddr, "skip")
	f.say(t, sellerAddr, "7")

	// Dashboard-side suspension lands mid-draft; the write must be refused.
	if err := f.store.UpdateSellerStatus(sellerUID, models.SellerStatusSuspended); err != nil {
		t.Fatalf("UpdateSellerStatus failed: %v", err)
	}

	sess = f.say(t, sellerAddr, "done")
	products, _ := f.store.ListProductsBySeller(sellerUID)
	if len(products) != 0 {
		t.Fatalf("suspended seller must not create products, found %d", len(products))
	}
	if sess.Step != "" || len(sess.DraftImages) != 0 {
		t.Error("refused draft should be cleared")
	}
	if !strings.Contains(f.lastSent(t).Body, "suspended") {
		t.Errorf("expected suspension notice, got %q", f.lastSent(t).Body)
	}
	if sess.Seller.Status != models.SellerStatusSuspended {
		t.Error("session snapshot should be refreshed from the store")
	}
}

// seedCatalog registers a seller and creates products for browse tests.
func seedCatalog(t *testing.T, f *fixture, names ...string) {
	t.Helper()
	f.registerSeller(t)
	for _, name := range names {
		f.say(t, sellerAddr, "1")
		f.say(t, sellerAddr, name)
		f.say(t, sellerAddr, "500")
		f.say(t, sellerAddr, "skip")
		f.say(t, sellerAddr, "5")
		f.say(t, sellerAddr, "skip")
	}
	f.msg.Reset()
}

func TestBrowseInvokesAIWithCatalogAndQuery(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "Red Running Shoes")

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	sess := f.say(t, buyerAddr, "red shoes")

	if f.ai.callCount() != 1 {
		t.Fatalf("expected exactly 1 AI call, got %d", f.ai.callCount())
	}
	prompt := f.ai.calls[0].user
	if !strings.Contains(prompt, "1. Red Running Shoes - price 500, stock 5") {
		t.Errorf("prompt missing catalog line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "red shoes") {
		t.Errorf("prompt missing literal buyer query:\n%s", prompt)
	}
	if sess.Step != models.StepAISearch {
		t.Errorf("expected ai_search step after intro, got %q", sess.Step)
	}
	if len(sess.Catalog) != 1 {
		t.Errorf("expected catalog cached on session, got %d entries", len(sess.Catalog))
	}
}

func TestBrowseNumericSelectionSkipsAI(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "Alpha", "Bravo", "Charlie")

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	f.say(t, buyerAddr, "anything")
	callsBefore := f.ai.callCount()

	sess := f.say(t, buyerAddr, "2")
	if f.ai.callCount() != callsBefore {
		t.Errorf("numeric selection must not invoke AI, calls went %d -> %d", callsBefore, f.ai.callCount())
	}
	if sess.Selected == nil || sess.Selected.Name != "Bravo" {
		t.Fatalf("expected second cached product selected, got %+v", sess.Selected)
	}
	if sess.Step != models.StepAIBuyConfirm {
		t.Errorf("expected ai_buy_confirm step, got %q", sess.Step)
	}
}

func TestBrowseNumericNameReachableBeyondIndexRange(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "Alpha", "501")

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	f.say(t, buyerAddr, "running gear")

	sess := f.say(t, buyerAddr, "501")
	if sess.Selected == nil || sess.Selected.Name != "501" {
		t.Fatalf("expected numeric-named product selected by name, got %+v", sess.Selected)
	}
	if sess.Step != models.StepAIBuyConfirm {
		t.Errorf("expected ai_buy_confirm after selection, got %q", sess.Step)
	}

	// In-range digits still resolve as a catalog index first. The decline
	// resets the flow, so browse is re-entered from the menu.
	f.say(t, buyerAddr, "no")
	f.say(t, buyerAddr, "3")
	f.say(t, buyerAddr, "running gear")
	sess = f.say(t, buyerAddr, "1")
	if sess.Selected == nil || sess.Selected.Name != "Alpha" {
		t.Fatalf("expected index selection to win for in-range digits, got %+v", sess.Selected)
	}
}

func TestBrowseMissReentersIntroSameTurn(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "Alpha")

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	f.say(t, buyerAddr, "first query")
	callsBefore := f.ai.callCount()

	sess := f.say(t, buyerAddr, "something unrelated")
	if f.ai.callCount() != callsBefore+1 {
		t.Errorf("a selection miss should re-enter intro with one AI call, got %d extra",
			f.ai.callCount()-callsBefore)
	}
	if sess.Step != models.StepAISearch {
		t.Errorf("re-entry should land back on ai_search, got %q", sess.Step)
	}
	if got := sess.Data[models.DataKeyBuyerQuery]; got != "something unrelated" {
		t.Errorf("re-entry should treat input as the new query, got %q", got)
	}
}

func TestBrowseDeclineClearsFlowStepData(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "Alpha")

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	f.say(t, buyerAddr, "something nice")
	sess := f.say(t, buyerAddr, "alpha")
	if sess.Step != models.StepAIBuyConfirm {
		t.Fatalf("setup: expected ai_buy_confirm, got %q", sess.Step)
	}

	// Unrecognized token re-prompts without changing step.
	sess = f.say(t, buyerAddr, "maybe")
	if sess.Step != models.StepAIBuyConfirm {
		t.Errorf("unrecognized confirm token must not change step, got %q", sess.Step)
	}

	sess = f.say(t, buyerAddr, "no")
	if sess.Flow != "" || sess.Step != "" {
		t.Errorf("decline must clear flow/step, got %q/%q", sess.Flow, sess.Step)
	}
	if len(sess.Data) != 0 {
		t.Errorf("decline must clear data, got %v", sess.Data)
	}
	if sess.Selected != nil || sess.Catalog != nil {
		t.Error("decline must drop cached catalog and selection")
	}
}

func TestBrowsePurchaseNotifiesSellerAndRecordsOrder(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "Alpha")
	seller, err := f.store.GetSellerByEmail("seller@example.com")
	if err != nil {
		t.Fatalf("seed seller missing: %v", err)
	}

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	f.say(t, buyerAddr, "something nice")
	f.say(t, buyerAddr, "alpha")
	f.say(t, buyerAddr, "yes")
	sess := f.say(t, buyerAddr, "Morgan")

	orders, err := f.store.ListOrdersBySeller(seller.UID)
	if err != nil {
		t.Fatalf("order query failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	o := orders[0]
	if o.CustomerName != "Morgan" || o.CustomerPhone != buyerCanonical {
		t.Errorf("unexpected order customer %q/%q", o.CustomerName, o.CustomerPhone)
	}
	if o.Status != models.OrderStatusPending {
		t.Errorf("order status = %q, want pending", o.Status)
	}

	var notified bool
	for _, m := range f.msg.Sent() {
		if m.To == seller.WhatsAppAddress && strings.Contains(m.Body, "Alpha") && strings.Contains(m.Body, "Morgan") {
			notified = true
		}
	}
	if !notified {
		t.Error("expected order-interest notification to the seller")
	}

	if sess.Flow != "" || sess.Step != "" || len(sess.Data) != 0 {
		t.Errorf("purchase completion must reset session, got %q/%q/%v", sess.Flow, sess.Step, sess.Data)
	}
	if !strings.Contains(f.lastSent(t).Body, "Morgan") {
		t.Errorf("expected buyer confirmation, got %q", f.lastSent(t).Body)
	}
}

func TestBrowseEmptyCatalogShortCircuits(t *testing.T) {
	f := newFixture(t)

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	sess := f.say(t, buyerAddr, "anything at all")

	if f.ai.callCount() != 0 {
		t.Errorf("empty catalog must not invoke AI, got %d calls", f.ai.callCount())
	}
	if sess.Flow != "" || sess.Step != "" {
		t.Errorf("empty catalog should reset the flow, got %q/%q", sess.Flow, sess.Step)
	}
	if f.lastSent(t).Body != msgBrowseEmpty {
		t.Errorf("expected empty-catalog apology, got %q", f.lastSent(t).Body)
	}
}

func TestBrowseAIFailureFailsOpen(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "Alpha")
	f.ai.err = context.DeadlineExceeded

	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "3")
	sess := f.say(t, buyerAddr, "alpha please")

	if sess.Step != models.StepAISearch {
		t.Errorf("AI failure must not stall the flow, got step %q", sess.Step)
	}
	if !strings.Contains(f.lastSent(t).Body, msgAIUnavailable) {
		t.Errorf("expected fail-open apology, got %q", f.lastSent(t).Body)
	}
}

func TestSendFailureDoesNotCorruptState(t *testing.T) {
	f := newFixture(t)
	f.say(t, sellerAddr, "hi")
	f.say(t, sellerAddr, "1")

	f.msg.SetSendError(context.DeadlineExceeded)
	sess := f.say(t, sellerAddr, "a@b.com")
	if sess.Step != models.StepRegPassword {
		t.Errorf("send failure must not roll back step advance, got %q", sess.Step)
	}
	f.msg.SetSendError(nil)

	sess = f.say(t, sellerAddr, "secret1")
	if sess.Step != models.StepRegBusinessName {
		t.Errorf("flow should continue after send failure, got %q", sess.Step)
	}
}

func TestUnknownInputFallback(t *testing.T) {
	f := newFixture(t)
	f.say(t, buyerAddr, "hi")
	f.say(t, buyerAddr, "banana")
	if got := f.lastSent(t).Body; got != msgFallbackLoggedOut {
		t.Errorf("expected logged-out fallback, got %q", got)
	}
}
