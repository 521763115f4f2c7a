package screen

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/escola/internal/domain"
)

// ErrSecretMismatch is returned when the elevated confirmation secret is wrong.
var ErrSecretMismatch = domain.NewAppError(domain.CodeForbidden, "senha de confirmação incorreta", nil)

// Confirmer verifies the elevated secret required before destructive actions.
type Confirmer interface {
	Verify(secret string) error
}

// SecretConfirmer checks the secret against a bcrypt hash.
type SecretConfirmer struct {
	hash []byte
}

// NewSecretConfirmer validates hash and returns a confirmer for it.
func NewSecretConfirmer(hash string) (*SecretConfirmer, error) {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("confirm secret hash: %w", err)
	}
	return &SecretConfirmer{hash: []byte(hash)}, nil
}

// Verify returns nil when secret matches.
func (s *SecretConfirmer) Verify(secret string) error {
	if secret == "" {
		return ErrSecretMismatch
	}
	err := bcrypt.CompareHashAndPassword(s.hash, []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrSecretMismatch
	}
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "falha ao verificar a senha", err)
	}
	return nil
}
