package models

import "time"

// Session is the per-address mutable conversation state. It is owned by the
// session manager for its lifetime; handlers mutate it only while holding the
// address lock.
type Session struct {
	Address    string
	Flow       FlowType
	Step       StepType
	Data       map[DataKey]string
	IsLoggedIn bool
	Seller     *Seller

	// Catalog caches the active product list fetched during the buyer browse
	// flow so repeated turns do not re-query the store.
	Catalog []Product
	// Selected is the product the buyer picked during browse.
	Selected *Product
	// DraftImages accumulates image references during product entry.
	DraftImages []string

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// ResetFlow clears the active flow and step while preserving draft data and
// login state. This is the greeting-command semantics: a "hi" always returns
// the user to a known place without logging them out.
func (s *Session) ResetFlow() {
	s.Flow = ""
	s.Step = ""
}

// ResetBrowse clears everything the buyer browse flow accumulated.
func (s *Session) ResetBrowse() {
	s.ResetFlow()
	s.Catalog = nil
	s.Selected = nil
	delete(s.Data, DataKeyBuyerQuery)
}

// ClearDraft drops accumulated step data and images, keeping flow and login
// state untouched. Used when a product entry sub-flow completes or aborts.
func (s *Session) ClearDraft() {
	s.Data = make(map[DataKey]string)
	s.DraftImages = nil
}

// ClearAll resets the session to the logged-out, flow-less initial state.
func (s *Session) ClearAll() {
	s.Flow = ""
	s.Step = ""
	s.Data = make(map[DataKey]string)
	s.IsLoggedIn = false
	s.Seller = nil
	s.Catalog = nil
	s.Selected = nil
	s.DraftImages = nil
}
