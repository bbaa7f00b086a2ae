package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// ExternalIdentity is the verified subject of an identity assertion.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// AssertionVerifier checks a third-party identity token and returns its subject.
type AssertionVerifier interface {
	Verify(ctx context.Context, assertion string) (*ExternalIdentity, error)
}

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleVerifier validates Google ID tokens against Google's published keys
// for a single OAuth client id.
type GoogleVerifier struct {
	validator *idtoken.Validator
	clientID  string
}

func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("google client id is empty")
	}
	v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	if err != nil {
		return nil, fmt.Errorf("google token validator: %w", err)
	}
	return &GoogleVerifier{validator: v, clientID: clientID}, nil
}

// Verify checks signature, expiry, audience and issuer, and requires a
// verified email address.
func (g *GoogleVerifier) Verify(ctx context.Context, assertion string) (*ExternalIdentity, error) {
	payload, err := g.validator.Validate(ctx, assertion, g.clientID)
	if err != nil {
		return nil, err
	}
	if !googleIssuers[payload.Issuer] {
		return nil, fmt.Errorf("unexpected issuer %q", payload.Issuer)
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("token carries no email")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, errors.New("email not verified")
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	return &ExternalIdentity{Subject: payload.Subject, Email: email, Name: name, Picture: picture}, nil
}

var _ AssertionVerifier = (*GoogleVerifier)(nil)
