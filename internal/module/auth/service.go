package auth

import (
	"context"
	"strings"

	"github.com/simp-lee/escola/internal/domain"
)

// ErrInvalidCredentials is shown for any rejected e-mail/password pair.
var ErrInvalidCredentials = domain.NewAppError(domain.CodeUnauthorized, "e-mail ou senha inválidos", nil)

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
}

type authService struct {
	authn domain.Authenticator
}

// NewService creates a Service that delegates credential checks to the API.
func NewService(authn domain.Authenticator) Service {
	return &authService{authn: authn}
}

// Login exchanges credentials for a token and profile. Whether the e-mail
// exists is never revealed: the API's 400, 401 and 404 answers all become
// ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := s.authn.Login(ctx, email, password)
	if err != nil {
		if domain.IsUnauthorized(err) || domain.IsValidation(err) || domain.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return res, nil
}
