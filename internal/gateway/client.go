package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/config"
	"github.com/spec-kit/ticket-console/internal/domain"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

const csrfCookieName = "csrftoken"

// Client talks to the ticket backend over REST. The session credential is
// sent as "Authorization: Token <key>"; state-changing requests replay the
// anti-forgery cookie issued by the backend as the X-CSRFToken header.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

var _ Gateway = (*Client)(nil)

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid gateway base url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: cfg.RequestTimeout(),
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// SetToken attaches or clears the opaque session credential.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ListTickets loads the full ticket collection.
func (c *Client) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var wire []wireTicket
	if err := c.do(ctx, http.MethodGet, "/tickets/", nil, &wire); err != nil {
		return nil, c.mapError(err, "load tickets", apperrors.NewFetchError, "ticket")
	}
	tickets := make([]domain.Ticket, 0, len(wire))
	for _, w := range wire {
		tickets = append(tickets, w.toDomain())
	}
	return tickets, nil
}

// GetTicket loads one ticket by id.
func (c *Client) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	var wire wireTicket
	if err := c.do(ctx, http.MethodGet, "/tickets/"+url.PathEscape(id)+"/", nil, &wire); err != nil {
		return nil, c.mapError(err, "load ticket", apperrors.NewFetchError, "ticket")
	}
	ticket := wire.toDomain()
	return &ticket, nil
}

// CreateTicket submits a new ticket. The backend assigns id, "new" status
// and both timestamps.
func (c *Client) CreateTicket(ctx context.Context, input domain.TicketInput) (*domain.Ticket, error) {
	req := createTicketRequest{
		Title:          input.Title,
		Description:    input.Description,
		Priority:       input.Priority,
		CreatedByName:  input.CreatedBy.Name,
		CreatedByEmail: input.CreatedBy.Email,
	}
	var wire wireTicket
	if err := c.do(ctx, http.MethodPost, "/tickets/", req, &wire); err != nil {
		return nil, c.mapError(err, "create ticket", apperrors.NewCreateError, "ticket")
	}
	ticket := wire.toDomain()
	return &ticket, nil
}

// UpdateTicket sends a partial update and returns the canonical record.
func (c *Client) UpdateTicket(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	req := updateTicketRequest{
		Title:       patch.Title,
		Description: patch.Description,
		Status:      patch.Status,
		Priority:    patch.Priority,
		AssignedTo:  patch.AssignedTo,
	}
	var wire wireTicket
	if err := c.do(ctx, http.MethodPatch, "/tickets/"+url.PathEscape(id)+"/", req, &wire); err != nil {
		return nil, c.mapError(err, "update ticket", apperrors.NewUpdateError, "ticket")
	}
	ticket := wire.toDomain()
	return &ticket, nil
}

// ListActivities loads the audit trail for one ticket, oldest first.
func (c *Client) ListActivities(ctx context.Context, ticketID string) ([]domain.Activity, error) {
	var wire []wireActivity
	path := "/tickets/" + url.PathEscape(ticketID) + "/activities/"
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, c.mapError(err, "load activities", apperrors.NewFetchError, "ticket")
	}
	activities := make([]domain.Activity, 0, len(wire))
	for _, w := range wire {
		activities = append(activities, w.toDomain())
	}
	return activities, nil
}

// CreateActivity appends an audit entry.
func (c *Client) CreateActivity(ctx context.Context, input NewActivity) (*domain.Activity, error) {
	req := createActivityRequest{
		Ticket:    input.TicketID,
		Type:      input.Type,
		Message:   input.Message,
		CreatedBy: input.CreatedBy,
	}
	var wire wireActivity
	if err := c.do(ctx, http.MethodPost, "/activities/", req, &wire); err != nil {
		return nil, c.mapError(err, "record activity", apperrors.NewActivityError, "ticket")
	}
	activity := wire.toDomain()
	return &activity, nil
}

// Login exchanges credentials for a session token and the user record. The
// token is not attached automatically; the session store decides that.
func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login/", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, apperrors.NewAuthError("login rejected", err)
	}
	return &Credentials{Token: resp.Token, User: resp.User.toDomain()}, nil
}

// Logout invalidates the session remotely. Best effort only; the caller
// clears local state regardless.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout/", struct{}{}, nil); err != nil {
		return apperrors.NewAuthError("logout rejected", err)
	}
	return nil
}

// CurrentUser fetches the identity behind the attached credential. A
// rejection means the credential is stale.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var wire wireUser
	if err := c.do(ctx, http.MethodGet, "/auth/user/", nil, &wire); err != nil {
		return nil, apperrors.NewAuthError("session credential rejected", err)
	}
	user := wire.toDomain()
	return &user, nil
}

// httpError carries a response status through to mapError.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("gateway returned status %d", e.status)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.status, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if method != http.MethodGet && method != http.MethodHead {
		if csrf := c.csrfToken(req.URL); csrf != "" {
			req.Header.Set("X-CSRFToken", csrf)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &httpError{status: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func (c *Client) csrfToken(u *url.URL) string {
	if c.http.Jar == nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

// mapError translates transport and status failures into the error kind
// scoped to the failed operation. Auth rejections and missing entities keep
// their own codes; timeouts and network failures share the operation code.
func (c *Client) mapError(err error, action string, wrap func(string, error) error, resource string) error {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		switch httpErr.status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.NewAuthError("session credential rejected", err)
		case http.StatusNotFound:
			return apperrors.NewNotFound(resource, nil)
		}
	}
	return wrap(fmt.Sprintf("failed to %s", action), err)
}
