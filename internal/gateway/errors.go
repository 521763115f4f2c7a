package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/simp-lee/escola/internal/domain"
)

const (
	msgUnavailable  = "não foi possível conectar ao servidor"
	msgValidation   = "dados inválidos"
	msgUnauthorized = "sessão expirada, entre novamente"
	msgForbidden    = "acesso negado"
	msgNotFound     = "registro não encontrado"
	msgConflict     = "registro já existe"
	msgInternal     = "erro inesperado no servidor"
)

// messageKeys are the body fields the API uses for a human readable error.
var messageKeys = []string{"message", "mensagem", "error", "erro"}

// transportError categorises a failure to obtain any HTTP response.
func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return domain.NewAppError(domain.CodeUnavailable, msgUnavailable, fmt.Errorf("%s: %w", op, ctxErr))
	}
	return domain.NewAppError(domain.CodeUnavailable, msgUnavailable, fmt.Errorf("%s: %w", op, err))
}

// statusError categorises a non-2xx response. The API message is used as the
// user-facing message when the body carries one.
func statusError(op string, status int, body []byte) error {
	code, fallback := classify(status)
	msg := extractMessage(body)
	if msg == "" {
		msg = fallback
	}
	return domain.NewAppError(code, msg, fmt.Errorf("%s: http %d", op, status))
}

func classify(status int) (int, string) {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.CodeValidation, msgValidation
	case http.StatusUnauthorized:
		return domain.CodeUnauthorized, msgUnauthorized
	case http.StatusForbidden:
		return domain.CodeForbidden, msgForbidden
	case http.StatusNotFound:
		return domain.CodeNotFound, msgNotFound
	case http.StatusConflict:
		return domain.CodeConflict, msgConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return domain.CodeUnavailable, msgUnavailable
	default:
		return domain.CodeInternal, msgInternal
	}
}

func extractMessage(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, k := range messageKeys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// outcome labels an error for metrics.
func outcome(err error) string {
	var appErr *domain.AppError
	if err == nil {
		return "ok"
	}
	if !errors.As(err, &appErr) {
		return "internal"
	}
	switch appErr.Code {
	case domain.CodeValidation:
		return "validation"
	case domain.CodeUnauthorized:
		return "unauthorized"
	case domain.CodeForbidden:
		return "forbidden"
	case domain.CodeNotFound:
		return "not_found"
	case domain.CodeConflict:
		return "conflict"
	case domain.CodeUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}
