package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// TokenVerifier checks a bearer token and returns the authenticated subject.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Principal, error)
}

// Principal is the caller of the admin API.
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// OIDCVerifier validates ID tokens issued by an OIDC provider.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// Ensure OIDCVerifier implements TokenVerifier.
var _ TokenVerifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier discovers the provider at issuerURL and verifies tokens
// whose audience is clientID.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify validates rawToken's signature, issuer, audience and expiry.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var p Principal
	if err := idToken.Claims(&p); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if p.Subject == "" {
		p.Subject = idToken.Subject
	}
	return &p, nil
}
