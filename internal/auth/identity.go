package auth

import (
	"context"
	"errors"
	"fmt"

	"bookreviews/pkg/models"
)

// Caller is the resolved identity of whoever issued the current request.
// Operations receive it from the serving boundary; a nil *Caller means the
// request is anonymous.
type Caller struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// DisplayName is the name stamped onto reviews and feedback.
func (c *Caller) DisplayName() string {
	return models.DisplayName(c.Name, c.Email, models.AnonymousName)
}

type callerKey struct{}

func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller attached by the auth middleware or
// interceptor, or nil.
func CallerFromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey{}).(*Caller)
	return c
}

// ErrUserLookup marks a Resolve failure caused by the user store rather than
// by the token itself.
var ErrUserLookup = errors.New("user lookup failed")

// UserLookup is the part of the user store needed to resolve a token.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// Authenticator turns a raw bearer token into a Caller.
type Authenticator struct {
	Tokens TokenService
	Users  UserLookup
}

func NewAuthenticator(tokens TokenService, users UserLookup) *Authenticator {
	return &Authenticator{Tokens: tokens, Users: users}
}

// Resolve validates the token, then checks that the user still exists and the
// token was issued for the current token version.
func (a *Authenticator) Resolve(ctx context.Context, raw string) (*Caller, error) {
	claims, err := a.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if a.Users == nil {
		return &Caller{ID: claims.UserID, Name: claims.Name, Email: claims.Email}, nil
	}

	u, err := a.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve caller: %w: %w", ErrUserLookup, err)
	}
	if u == nil {
		return nil, fmt.Errorf("resolve caller: user %s not found", claims.UserID)
	}
	if u.TokenVersion != claims.TokenVersion {
		return nil, fmt.Errorf("resolve caller: token revoked")
	}
	return u.Caller(), nil
}
