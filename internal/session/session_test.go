package session

import (
	"sync"
	"testing"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	s1 := m.GetOrCreate("15550001111")
	s1.Flow = models.FlowSellerRegistration
	s1.Step = models.StepRegEmail

	s2 := m.GetOrCreate("15550001111")
	if s1 != s2 {
		t.Fatal("expected the same session instance for repeat contact")
	}
	if s2.Flow != models.FlowSellerRegistration || s2.Step != models.StepRegEmail {
		t.Error("session state should survive between reads")
	}
}

func TestGetOrCreateFreshSessionIsLoggedOut(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	s := m.GetOrCreate("15550001111")
	if s.IsLoggedIn || s.Seller != nil {
		t.Error("fresh session must be logged out")
	}
	if s.Flow != "" || s.Step != "" {
		t.Error("fresh session must have no active flow")
	}
	if s.Data == nil {
		t.Error("fresh session must have an initialized data map")
	}
}

func TestExpiredSessionReplacedOnRead(t *testing.T) {
	m := NewManager(WithTTL(10*time.Millisecond), WithSweepInterval(time.Hour))
	defer m.Stop()

	s1 := m.GetOrCreate("15550001111")
	s1.IsLoggedIn = true
	s1.Flow = models.FlowSellerDashboard

	time.Sleep(20 * time.Millisecond)

	s2 := m.GetOrCreate("15550001111")
	if s1 == s2 {
		t.Fatal("expired session must be replaced on read")
	}
	if s2.IsLoggedIn || s2.Flow != "" {
		t.Error("replacement session must be fresh and logged out")
	}
}

func TestReadExtendsLifetime(t *testing.T) {
	m := NewManager(WithTTL(50*time.Millisecond), WithSweepInterval(time.Hour))
	defer m.Stop()

	s1 := m.GetOrCreate("15550001111")
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		if got := m.GetOrCreate("15550001111"); got != s1 {
			t.Fatal("active session should be kept alive by reads")
		}
	}
}

func TestPeekDoesNotCreate(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	if m.Peek("15550001111") != nil {
		t.Error("Peek must not create a session")
	}
	if m.Count() != 0 {
		t.Errorf("expected 0 sessions, got %d", m.Count())
	}
}

func TestSweeperEvictsExpired(t *testing.T) {
	m := NewManager(WithTTL(10*time.Millisecond), WithSweepInterval(10*time.Millisecond))
	defer m.Stop()

	m.GetOrCreate("15550001111")
	m.GetOrCreate("15550002222")

	deadline := time.Now().Add(time.Second)
	for m.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := m.Count(); got != 0 {
		t.Errorf("expected sweeper to evict all sessions, %d remain", got)
	}
}

func TestPerAddressLockSerializes(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	const iterations = 100
	var wg sync.WaitGroup
	sess := m.GetOrCreate("15550001111")

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.Lock("15550001111")
				sess.Data[models.DataKeyBuyerQuery] = "q"
				sess.Step = models.StepAIIntro
				sess.Step = ""
				m.Unlock("15550001111")
			}
		}()
	}
	wg.Wait()

	if sess.Step != "" {
		t.Errorf("unexpected final step %q", sess.Step)
	}
}

func TestAddressLocksFreedWhenIdle(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	for _, addr := range []string{"15550001111", "15550002222", "15550003333"} {
		m.Lock(addr)
		m.Unlock(addr)
	}

	m.locksMu.Lock()
	remaining := len(m.locks)
	m.locksMu.Unlock()
	if remaining != 0 {
		t.Errorf("expected no lock entries for idle addresses, got %d", remaining)
	}
}

func TestAddressLockSharedWhileContended(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	m.Lock("15550001111")

	acquired := make(chan struct{})
	go func() {
		m.Lock("15550001111")
		m.Unlock("15550001111")
		close(acquired)
	}()

	// The waiter must block on the same entry, not a fresh one.
	select {
	case <-acquired:
		t.Fatal("second Lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	m.Unlock("15550001111")
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock after release")
	}

	m.locksMu.Lock()
	remaining := len(m.locks)
	m.locksMu.Unlock()
	if remaining != 0 {
		t.Errorf("expected lock entry to be dropped after both releases, got %d", remaining)
	}
}

func TestLocksIndependentPerAddress(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	m.Lock("15550001111")
	done := make(chan struct{})
	go func() {
		m.Lock("15550002222")
		m.Unlock("15550002222")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for one address must not block another address")
	}
	m.Unlock("15550001111")
}
