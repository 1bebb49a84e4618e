package auth

import (
	"context"
	"errors"
	"fmt"
)

// Authenticator logs users in and verifies their tokens.
type Authenticator struct {
	store        AccountStore
	tokens       *TokenIssuer
	maxAttempts  int
	resetOnLogin bool
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithMaxAttempts sets the failed attempts that block an account.
func WithMaxAttempts(n int) Option {
	return func(a *Authenticator) { a.maxAttempts = n }
}

// WithResetOnLogin clears the failed attempt counter on successful login.
func WithResetOnLogin(reset bool) Option {
	return func(a *Authenticator) { a.resetOnLogin = reset }
}

// NewAuthenticator creates an Authenticator. Accounts are blocked after
// ten failed attempts unless WithMaxAttempts says otherwise.
func NewAuthenticator(store AccountStore, tokens *TokenIssuer, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:       store,
		tokens:      tokens,
		maxAttempts: 10,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoginResult is a successful login.
type LoginResult struct {
	Token   string   `json:"token"`
	Account *Account `json:"-"`
}

// Login checks credentials and issues a token bound to userAgent.
func (a *Authenticator) Login(ctx context.Context, login, password, userAgent string) (*LoginResult, error) {
	account, err := a.store.FindByLogin(ctx, login)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	switch account.Status {
	case StatusDisabled:
		if _, _, err := a.store.RegisterFailure(ctx, account.ID, a.maxAttempts); err != nil {
			return nil, fmt.Errorf("register failure: %w", err)
		}
		return nil, ErrAccountDisabled
	case StatusBlocked:
		if _, _, err := a.store.RegisterFailure(ctx, account.ID, a.maxAttempts); err != nil {
			return nil, fmt.Errorf("register failure: %w", err)
		}
		return nil, ErrAccountBlocked
	}

	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		_, status, err := a.store.RegisterFailure(ctx, account.ID, a.maxAttempts)
		if err != nil {
			return nil, fmt.Errorf("register failure: %w", err)
		}
		if status == StatusBlocked {
			return nil, ErrAccountBlocked
		}
		return nil, ErrInvalidCredentials
	}

	if a.resetOnLogin && account.Attempts > 0 {
		if err := a.store.ResetAttempts(ctx, account.ID); err != nil {
			return nil, fmt.Errorf("reset attempts: %w", err)
		}
		account.Attempts = 0
	}

	token, err := a.tokens.Issue(account, userAgent)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Account: account}, nil
}

// Verify validates token for a request sent by userAgent and returns the
// caller it identifies.
func (a *Authenticator) Verify(ctx context.Context, token, userAgent string) (*Caller, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.UserAgent != userAgent {
		return nil, fmt.Errorf("%w: user agent mismatch", ErrInvalidToken)
	}

	account, err := a.store.FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if Fingerprint(account.PasswordHash) != claims.Fingerprint {
		return nil, fmt.Errorf("%w: password changed", ErrInvalidToken)
	}
	if account.Status != StatusActive {
		return nil, fmt.Errorf("%w: account is %s", ErrInvalidToken, account.Status)
	}
	return account.Caller(), nil
}

// ChangePassword replaces the password of userID after checking current.
// Tokens issued before the change stop verifying.
func (a *Authenticator) ChangePassword(ctx context.Context, userID, current, next string) error {
	account, err := a.store.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if err := VerifyPassword(account.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return a.store.SetPassword(ctx, userID, hash)
}
