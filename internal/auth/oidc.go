package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/lexdraft/lexdraft/backend/go-services/pkg/middleware"
)

// OIDCVerifier checks ID tokens against an OpenID Connect provider
// (Keycloak in the default deployment).
type OIDCVerifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the provider at issuer. ctx bounds discovery only.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &OIDCVerifier{provider: provider, verifier: verifier}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
