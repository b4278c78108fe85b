package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/store"
)

func newTestProvider(t *testing.T, opts ...Option) *StoreProvider {
	t.Helper()
	st := store.NewInMemoryStore()
	return NewStoreProvider(st, opts...)
}

func TestCreateAccountAndAuthenticate(t *testing.T) {
	p := newTestProvider(t)

	uid, err := p.CreateAccount("seller@example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if uid == "" {
		t.Fatal("expected non-empty UID")
	}

	got, err := p.Authenticate("seller@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got != uid {
		t.Errorf("expected UID %q, got %q", uid, got)
	}
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	p := newTestProvider(t)

	if _, err := p.CreateAccount("dup@example.com", "secret1"); err != nil {
		t.Fatalf("first CreateAccount failed: %v", err)
	}
	_, err := p.CreateAccount("dup@example.com", "another1")
	if !errors.Is(err, ErrEmailInUse) {
		t.Errorf("expected ErrEmailInUse, got %v", err)
	}
}

func TestCreateAccountDuplicateEmailCaseInsensitive(t *testing.T) {
	p := newTestProvider(t)

	if _, err := p.CreateAccount("Case@Example.com", "secret1"); err != nil {
		t.Fatalf("first CreateAccount failed: %v", err)
	}
	_, err := p.CreateAccount("case@example.COM", "another1")
	if !errors.Is(err, ErrEmailInUse) {
		t.Errorf("expected ErrEmailInUse for case variant, got %v", err)
	}
}

func TestCreateAccountInvalidEmail(t *testing.T) {
	p := newTestProvider(t)

	for _, email := range []string{"", "plainaddress", "no@dot", "spa ce@x.com"} {
		if _, err := p.CreateAccount(email, "secret1"); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.Authenticate("nobody@example.com", "whatever")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	p := newTestProvider(t)

	if _, err := p.CreateAccount("seller@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	_, err := p.Authenticate("seller@example.com", "wrong")
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
}

func TestAuthenticateLockoutAfterRepeatedFailures(t *testing.T) {
	p := newTestProvider(t, WithMaxFailedAttempts(3), WithLockoutWindow(time.Minute))

	if _, err := p.CreateAccount("seller@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Authenticate("seller@example.com", "wrong"); !errors.Is(err, ErrWrongPassword) {
			t.Fatalf("attempt %d: expected ErrWrongPassword, got %v", i, err)
		}
	}
	// Even the right password is refused while locked out.
	_, err := p.Authenticate("seller@example.com", "secret1")
	if !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("expected ErrTooManyRequests, got %v", err)
	}
}

func TestAuthenticateSuccessClearsFailures(t *testing.T) {
	p := newTestProvider(t, WithMaxFailedAttempts(3), WithLockoutWindow(time.Minute))

	if _, err := p.CreateAccount("seller@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		p.Authenticate("seller@example.com", "wrong")
	}
	if _, err := p.Authenticate("seller@example.com", "secret1"); err != nil {
		t.Fatalf("Authenticate after failures should succeed, got %v", err)
	}
	// Counter reset: two more failures stay below the lockout threshold.
	for i := 0; i < 2; i++ {
		if _, err := p.Authenticate("seller@example.com", "wrong"); !errors.Is(err, ErrWrongPassword) {
			t.Fatalf("expected ErrWrongPassword after reset, got %v", err)
		}
	}
}

func TestUserMessageMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrEmailInUse, "This email is already registered. Please login instead or use a different email."},
		{ErrUserNotFound, "No account found with this email. Please register first."},
		{ErrWrongPassword, "Incorrect password. Please try again."},
		{ErrInvalidEmail, "Invalid email format. Please enter a valid email address."},
		{ErrTooManyRequests, "Too many attempts. Please try again later."},
		{errors.New("boom"), "Something went wrong. Please try again."},
	}
	for _, c := range cases {
		if got := UserMessage(c.err); got != c.want {
			t.Errorf("UserMessage(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestValidPassword(t *testing.T) {
	if ValidPassword("12345") {
		t.Error("expected 5-char password to be rejected")
	}
	if !ValidPassword("123456") {
		t.Error("expected 6-char password to be accepted")
	}
}
