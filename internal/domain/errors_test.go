package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "with wrapped error",
			err:  &AppError{Code: CodeNotFound, Message: "aluno não encontrado", Err: errors.New("404")},
			want: "aluno não encontrado: 404",
		},
		{
			name: "without wrapped error",
			err:  &AppError{Code: CodeNotFound, Message: "aluno não encontrado"},
			want: "aluno não encontrado",
		},
		{
			name: "only wrapped error",
			err:  &AppError{Code: CodeUnavailable, Err: errors.New("dial tcp: refused")},
			want: "dial tcp: refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("inner error")
	appErr := &AppError{Code: CodeInternal, Message: "something failed", Err: inner}

	if !errors.Is(appErr, inner) {
		t.Error("Unwrap() should allow errors.Is to find wrapped error")
	}

	appErr2 := &AppError{Code: CodeInternal, Message: "no wrap"}
	if appErr2.Unwrap() != nil {
		t.Error("Unwrap() should return nil when Err is nil")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checkFn func(error) bool
		code    int
	}{
		{"ErrNotFound", ErrNotFound, IsNotFound, CodeNotFound},
		{"ErrConflict", ErrConflict, IsConflict, CodeConflict},
		{"ErrValidation", ErrValidation, IsValidation, CodeValidation},
		{"ErrInternal", ErrInternal, IsInternal, CodeInternal},
		{"ErrUnauthorized", ErrUnauthorized, IsUnauthorized, CodeUnauthorized},
		{"ErrForbidden", ErrForbidden, IsForbidden, CodeForbidden},
		{"ErrUnavailable", ErrUnavailable, IsUnavailable, CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var appErr *AppError
			if !errors.As(tt.err, &appErr) {
				t.Fatal("should be *AppError")
			}
			if appErr.Code != tt.code {
				t.Errorf("Code = %d; want %d", appErr.Code, tt.code)
			}
			if !tt.checkFn(fmt.Errorf("wrapped: %w", tt.err)) {
				t.Errorf("check function should match wrapped %s", tt.name)
			}
		})
	}
}

func TestIsCheckers_NonAppError(t *testing.T) {
	plainErr := errors.New("some error")
	checks := []func(error) bool{IsNotFound, IsConflict, IsValidation, IsInternal, IsUnauthorized, IsForbidden, IsUnavailable}
	for i, check := range checks {
		if check(plainErr) {
			t.Errorf("checker %d should return false for non-AppError", i)
		}
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"conflict", ErrConflict, http.StatusConflict},
		{"validation", ErrValidation, http.StatusBadRequest},
		{"field error", &FieldError{Field: "nome", Reason: "obrigatório"}, http.StatusBadRequest},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"unavailable", ErrUnavailable, http.StatusBadGateway},
		{"internal", ErrInternal, http.StatusInternalServerError},
		{"unknown code", NewAppError(999, "unknown", nil), http.StatusInternalServerError},
		{"non-AppError", errors.New("plain"), http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"conflict message", NewAppError(CodeConflict, "mensalidade já existe", nil), "mensalidade já existe"},
		{"internal hidden", NewAppError(CodeInternal, "sql: connection reset", nil), "fallback"},
		{"empty message", NewAppError(CodeNotFound, "", nil), "fallback"},
		{"plain error", errors.New("boom"), "fallback"},
		{"field error", fmt.Errorf("bind: %w", &FieldError{Field: "nome", Label: "Nome", Reason: "campo obrigatório"}), "Nome: campo obrigatório"},
		{"field error without label", &FieldError{Field: "nome", Reason: "campo obrigatório"}, "nome: campo obrigatório"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err, "fallback"); got != tt.want {
				t.Errorf("UserMessage() = %q; want %q", got, tt.want)
			}
		})
	}
}
