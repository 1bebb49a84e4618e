package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testAccount(t *testing.T, password string) *Account {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return &Account{
		ID:           "65f1a2b3c4d5e6f708192a3b",
		Email:        "awa@example.org",
		UserName:     "awa",
		PasswordHash: hash,
		Status:       StatusActive,
		Profile:      ProfileRef{ID: "65f1a2b3c4d5e6f708192a40", Name: "AGENT"},
	}
}

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	account := testAccount(t, "s3cretpass")

	token, err := issuer.Issue(account, "curl/8.0")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q is not a compact JWT", token)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != account.ID {
		t.Errorf("Subject = %q, want %q", claims.Subject, account.ID)
	}
	if claims.UserAgent != "curl/8.0" {
		t.Errorf("UserAgent = %q, want curl/8.0", claims.UserAgent)
	}
	if claims.Fingerprint != Fingerprint(account.PasswordHash) {
		t.Errorf("Fingerprint does not match the password hash")
	}
	if strings.Contains(token, account.PasswordHash) {
		t.Errorf("token must not embed the password hash")
	}
}

func TestTokenIssuer_ParseRejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	account := testAccount(t, "s3cretpass")

	valid, err := issuer.Issue(account, "ua")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired := NewTokenIssuer("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(account, "ua")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		with  *TokenIssuer
	}{
		{"empty", "", issuer},
		{"garbage", "not.a.token", issuer},
		{"wrong secret", valid, NewTokenIssuer("other-secret", time.Hour)},
		{"expired", old, issuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.with.Parse(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenIssuer_IssueRequiresID(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Issue(&Account{}, "ua"); err == nil {
		t.Error("Issue() should fail without an account id")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("$2a$10$abc")
	b := Fingerprint("$2a$10$abd")
	if len(a) != 32 {
		t.Errorf("Fingerprint length = %d, want 32", len(a))
	}
	if a == b {
		t.Error("different hashes must have different fingerprints")
	}
	if a != Fingerprint("$2a$10$abc") {
		t.Error("Fingerprint must be deterministic")
	}
}
