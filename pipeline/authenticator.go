package pipeline

import (
	"context"
	"crypto/subtle"
	"strings"
)

// Authenticator gates the pipeline on the inbound bearer credential.
type Authenticator interface {
	Verify(ctx context.Context, credential string) error
}

// TokenAuthenticator compares the presented credential against the
// configured static token. One stateless comparison per call, no lockout.
type TokenAuthenticator struct {
	token string
}

func NewTokenAuthenticator(token string) *TokenAuthenticator {
	return &TokenAuthenticator{token: strings.TrimSpace(token)}
}

func (a *TokenAuthenticator) Verify(_ context.Context, credential string) error {
	if a == nil || a.token == "" {
		return pipelineInternal("pipeline: authenticator is not configured")
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return pipelineAuthError("pipeline: missing bearer credential")
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(a.token)) != 1 {
		return pipelineAuthError("pipeline: invalid bearer credential")
	}
	return nil
}

var _ Authenticator = (*TokenAuthenticator)(nil)
