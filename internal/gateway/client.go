// Package gateway is the HTTP client for the school API. Every call forwards
// the caller's bearer token and request id found on the context and maps
// failures to domain.AppError categories.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simp-lee/escola/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
	loginPath      = "auth/login"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client implements domain.Gateway and domain.Authenticator over HTTP.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	log     *slog.Logger
	metrics *Metrics
}

var (
	_ domain.Gateway       = (*Client)(nil)
	_ domain.Authenticator = (*Client)(nil)
)

// NewClient creates a Client for the API rooted at cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: base,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches the full collection of entity.
func (c *Client) List(ctx context.Context, entity domain.Entity) ([]domain.Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list", entity, http.MethodGet, string(entity), nil, &raw); err != nil {
		return nil, err
	}
	data := unwrapData(raw, '[')
	if len(data) == 0 {
		return []domain.Record{}, nil
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, msgInternal, fmt.Errorf("decode %s list: %w", entity, err))
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, entity domain.Entity, id string) (domain.Record, error) {
	return c.record(ctx, "get", entity, http.MethodGet, itemPath(entity, id), nil)
}

// Create posts a new record and returns the stored version.
func (c *Client) Create(ctx context.Context, entity domain.Entity, draft domain.Record) (domain.Record, error) {
	return c.record(ctx, "create", entity, http.MethodPost, string(entity), draft)
}

// Update replaces the record with the given id.
func (c *Client) Update(ctx context.Context, entity domain.Entity, id string, draft domain.Record) (domain.Record, error) {
	return c.record(ctx, "update", entity, http.MethodPut, itemPath(entity, id), draft)
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, entity domain.Entity, id string) error {
	return c.do(ctx, "delete", entity, http.MethodDelete, itemPath(entity, id), nil, nil)
}

// Login exchanges credentials for a token and the user's profile.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	var resp struct {
		Token   string        `json:"token"`
		Usuario domain.Record `json:"usuario"`
	}
	body := map[string]string{"email": email, "senha": password}
	if err := c.do(ctx, "login", "auth", http.MethodPost, loginPath, body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, domain.NewAppError(domain.CodeInternal, msgInternal, fmt.Errorf("login: response without token"))
	}
	role, err := domain.ParseRole(firstText(resp.Usuario, "role", "tipo", "perfil"))
	if err != nil {
		return nil, domain.NewAppError(domain.CodeForbidden, "perfil de usuário não reconhecido", err)
	}
	return &domain.LoginResult{
		Token: resp.Token,
		Profile: domain.Profile{
			ID:    resp.Usuario.ID(),
			Name:  resp.Usuario.String("nome"),
			Email: resp.Usuario.String("email"),
			Role:  role,
		},
	}, nil
}

// Ping reports whether the API answers HTTP at all. Any status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, "ping", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return resp.Body.Close()
}

func (c *Client) record(ctx context.Context, op string, entity domain.Entity, method, path string, body any) (domain.Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, entity, method, path, body, &raw); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Record{}, nil
	}
	var r domain.Record
	if err := json.Unmarshal(unwrapData(raw, '{'), &r); err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, msgInternal, fmt.Errorf("decode %s: %w", entity, err))
	}
	return r, nil
}

func (c *Client) do(ctx context.Context, op string, entity domain.Entity, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.metrics.observe(string(entity), op, err, elapsed)
		c.log.DebugContext(ctx, "gateway call",
			slog.String("entity", string(entity)),
			slog.String("operation", op),
			slog.Duration("duration", elapsed),
			slog.String("outcome", outcome(err)),
		)
	}()

	var reader io.Reader
	if body != nil {
		buf, mErr := json.Marshal(body)
		if mErr != nil {
			return domain.NewAppError(domain.CodeInternal, msgInternal, fmt.Errorf("%s: encode body: %w", op, mErr))
		}
		reader = bytes.NewReader(buf)
	}

	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, msgInternal, fmt.Errorf("%s: build request: %w", op, err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := domain.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if rid := domain.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(ctx, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return domain.NewAppError(domain.CodeInternal, msgInternal, fmt.Errorf("%s: decode response: %w", op, err))
	}
	return nil
}

func itemPath(entity domain.Entity, id string) string {
	return string(entity) + "/" + url.PathEscape(id)
}

// unwrapData returns the "data" member of an envelope object when it holds
// the expected JSON kind ('[' or '{'); otherwise raw itself.
func unwrapData(raw json.RawMessage, kind byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	if d := bytes.TrimSpace(env.Data); len(d) > 0 && d[0] == kind {
		return d
	}
	return trimmed
}

func firstText(r domain.Record, fields ...string) string {
	for _, f := range fields {
		if s, ok := r.Text(f); ok {
			return s
		}
	}
	return ""
}
