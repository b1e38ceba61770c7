// Package api is the HTTP client for the mixing-machine backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/readings"
)

const maxResponseBytes = 16 << 20

// TokenSource supplies the bearer token added to each request.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client talks to the backend REST API.
type Client struct {
	baseURL  string
	apiURL   string
	apiV1URL string
	http     *http.Client
	tokens   TokenSource
	tracer   Tracer
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTracer records every exchange to t.
func WithTracer(t Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New creates a Client for the configured backend. tokens may be nil for
// unauthenticated use.
func New(cfg config.BackendConfig, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		apiV1URL: strings.TrimRight(cfg.APIV1URL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout()},
		tokens:   tokens,
		tracer:   NopTracer{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one request and returns the response body of a 2xx response.
// authStatus lists the status codes that map to ErrAuth for this call.
func (c *Client) do(ctx context.Context, op, method, target string, body any, authStatus ...int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := c.now()
	resp, err := c.http.Do(req)
	ex := Exchange{Method: method, URL: target, At: start}
	if err != nil {
		ex.Duration = c.now().Sub(start)
		ex.Err = err
		c.tracer.Trace(ex)
		return nil, fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	ex.Status = resp.StatusCode
	ex.Duration = c.now().Sub(start)
	if err != nil {
		ex.Err = err
		c.tracer.Trace(ex)
		return nil, fmt.Errorf("%s: %w: reading response: %v", op, ErrNetwork, err)
	}
	c.tracer.Trace(ex)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := ErrNetwork
		for _, code := range authStatus {
			if resp.StatusCode == code {
				kind = ErrAuth
			}
		}
		return nil, &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    messageFrom(respBody),
			kind:       kind,
		}
	}
	return respBody, nil
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, login, password string) (LoginResponse, error) {
	if strings.TrimSpace(login) == "" {
		return LoginResponse{}, Validationf("login is required")
	}
	if password == "" {
		return LoginResponse{}, Validationf("password is required")
	}

	body, err := c.do(ctx, "login", http.MethodPost, c.apiURL+"/auth/login",
		map[string]string{"login": login, "password": password},
		http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden)
	if err != nil {
		return LoginResponse{}, err
	}

	var payload struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return LoginResponse{}, fmt.Errorf("login: decoding response: %w", err)
	}

	// Some backends return the profile at the top level with the token on it.
	userRaw := bytes.TrimSpace(payload.User)
	if len(userRaw) == 0 || bytes.Equal(userRaw, []byte("null")) {
		userRaw = body
	}
	var user User
	if err := json.Unmarshal(userRaw, &user); err != nil {
		return LoginResponse{}, fmt.Errorf("login: decoding user: %w", err)
	}
	token := payload.Token
	if token == "" {
		var nested struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(userRaw, &nested)
		token = nested.Token
	}
	if token == "" {
		return LoginResponse{}, fmt.Errorf("login: %w: response carried no token", ErrAuth)
	}
	return LoginResponse{Token: token, User: user}, nil
}

// GetHistory fetches one page of reading history, newest first.
func (c *Client) GetHistory(ctx context.Context, q HistoryQuery) (HistoryPage, error) {
	params := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 50
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	if q.MachineID != "" {
		params.Set("machine_id", q.MachineID)
	}
	if q.StartDate != "" {
		params.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("end_date", q.EndDate)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}

	body, err := c.do(ctx, "history", http.MethodGet, c.apiURL+"/readings/history?"+params.Encode(), nil)
	if err != nil {
		return HistoryPage{}, err
	}

	rows, err := decodeReadings(body)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("history: %w", err)
	}
	return HistoryPage{Readings: rows, TotalPages: totalPages(body)}, nil
}

// GetSummary fetches the latest reading per machine.
func (c *Client) GetSummary(ctx context.Context) ([]readings.Reading, error) {
	body, err := c.do(ctx, "summary", http.MethodGet, c.apiURL+"/dashboard/summary", nil)
	if err != nil {
		return nil, err
	}
	rows, err := decodeReadings(body)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return rows, nil
}

// GetMachines lists machines, trying the primary API first and the v1 API
// second.
func (c *Client) GetMachines(ctx context.Context) ([]Machine, error) {
	var lastErr error
	for _, base := range []string{c.apiURL, c.apiV1URL} {
		body, err := c.do(ctx, "machines", http.MethodGet, base+"/machines", nil)
		if err != nil {
			log.Printf("WARNING: fetching machines from %s: %v", base, err)
			lastErr = err
			continue
		}
		list, err := unwrapList(body, "data", "results", "machines", "data.machines")
		if err != nil {
			return nil, fmt.Errorf("machines: %w", err)
		}
		var machines []Machine
		if err := json.Unmarshal(list, &machines); err != nil {
			return nil, fmt.Errorf("machines: decoding: %w", err)
		}
		return machines, nil
	}
	return nil, fmt.Errorf("fetching machines from all endpoints: %w", lastErr)
}

// GetUserDetail fetches the full profile of a user.
func (c *Client) GetUserDetail(ctx context.Context, id string) (User, error) {
	body, err := c.do(ctx, "user detail", http.MethodGet, c.apiV1URL+"/users/detail/"+url.PathEscape(id), nil)
	if err != nil {
		return User{}, err
	}
	var user User
	if err := json.Unmarshal(unwrapObject(body), &user); err != nil {
		return User{}, fmt.Errorf("user detail: decoding: %w", err)
	}
	return user, nil
}

// GetUsers lists every user account. The backend only answers admins.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	body, err := c.do(ctx, "users", http.MethodGet, c.apiV1URL+"/users", nil)
	if err != nil {
		return nil, err
	}
	list, err := unwrapList(body, "data", "users", "data.users")
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	var users []User
	if err := json.Unmarshal(list, &users); err != nil {
		return nil, fmt.Errorf("users: decoding: %w", err)
	}
	return users, nil
}

// Acknowledge records an operator note against an alert reading.
func (c *Client) Acknowledge(ctx context.Context, readingID, note string) error {
	if strings.TrimSpace(readingID) == "" {
		return Validationf("reading id is required")
	}
	if strings.TrimSpace(note) == "" {
		return Validationf("an acknowledgement note is required")
	}
	_, err := c.do(ctx, "acknowledge", http.MethodPost, c.apiURL+"/alerts/acknowledge",
		map[string]string{"reading_id": readingID, "note": note})
	return err
}

// GetThresholds fetches the ratio limits of a machine.
func (c *Client) GetThresholds(ctx context.Context, machineID string) (Thresholds, error) {
	body, err := c.do(ctx, "thresholds", http.MethodGet, c.apiURL+"/thresholds/"+url.PathEscape(machineID), nil)
	if err != nil {
		return Thresholds{}, err
	}
	var t Thresholds
	if err := json.Unmarshal(unwrapObject(body), &t); err != nil {
		return Thresholds{}, fmt.Errorf("thresholds: decoding: %w", err)
	}
	if t.MachineID == "" {
		t.MachineID = machineID
	}
	return t, nil
}

// UpdateThresholds stores new ratio limits for a machine.
func (c *Client) UpdateThresholds(ctx context.Context, t Thresholds) error {
	_, err := c.do(ctx, "update thresholds", http.MethodPost, c.apiURL+"/thresholds/update", t)
	return err
}

// CheckHealth calls the backend liveness endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	_, err := c.do(ctx, "health", http.MethodGet, c.baseURL+"/test", nil)
	return err
}

func decodeReadings(body []byte) ([]readings.Reading, error) {
	list, err := unwrapList(body, "data", "results")
	if err != nil {
		return nil, err
	}
	var rows []readings.Reading
	if err := json.Unmarshal(list, &rows); err != nil {
		return nil, fmt.Errorf("decoding readings: %w", err)
	}
	return rows, nil
}

func totalPages(body []byte) int {
	var meta struct {
		TotalPages  *int `json:"totalPages"`
		TotalPagesSnake *int `json:"total_pages"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return 0
	}
	if meta.TotalPages != nil {
		return *meta.TotalPages
	}
	if meta.TotalPagesSnake != nil {
		return *meta.TotalPagesSnake
	}
	return 0
}
