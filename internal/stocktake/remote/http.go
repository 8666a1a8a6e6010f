package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
)

// IdempotencyHeader carries the mutation's idempotency key on every
// mutating request.
const IdempotencyHeader = "X-Idempotency-Key"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Client is the HTTP RemoteService.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

var _ stocktake.RemoteService = (*Client)(nil)

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	var resp dto.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) StartSession(ctx context.Context, req *dto.SessionStartRequest) (*dto.SessionStartResponse, error) {
	var resp dto.SessionStartResponse
	if err := c.do(ctx, http.MethodPost, "/sessions/start", req.IdempotencyKey, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID, idempotencyKey string) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/end", idempotencyKey, nil, nil)
}

func (c *Client) VerifyItem(ctx context.Context, sessionID string, req *dto.VerifyStockRequest) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/verify", req.IdempotencyKey, req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) AddItem(ctx context.Context, sessionID string, req *dto.AddStockRequest) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/add", req.IdempotencyKey, req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) GetItemLatest(ctx context.Context, sku string) (*dto.LiveItem, error) {
	var live dto.LiveItem
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(sku)+"/live", "", nil, &live); err != nil {
		return nil, err
	}
	return &live, nil
}

func (c *Client) ApproveVariance(ctx context.Context, varianceID string) error {
	return c.do(ctx, http.MethodPost, "/governance/variances/"+url.PathEscape(varianceID)+"/approve", "", nil, nil)
}

func (c *Client) ResolveConflict(ctx context.Context, conflictID string, req *dto.ResolveConflictRequest) error {
	return c.do(ctx, http.MethodPost, "/governance/conflicts/"+url.PathEscape(conflictID)+"/resolve", req.IdempotencyKey, req, nil)
}

func (c *Client) AssignRecount(ctx context.Context, sessionID string, req *dto.AssignRecountRequest) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/recounts", req.IdempotencyKey, req, nil)
}

// apiError is a non-conflict error response.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("HTTP %d: %s: %s", e.Status, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func decodeError(status int, body []byte) error {
	switch status {
	case http.StatusConflict:
		var cb dto.ConflictBody
		// A 409 without a readable body is still a conflict; the conflict
		// record falls back to its defaults.
		_ = json.Unmarshal(body, &cb)
		return &stocktake.VersionConflictError{
			ServerVersion: cb.ServerVersion,
			ServerQty:     cb.ServerQty,
			ServerUser:    cb.ServerUser,
		}
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, strings.TrimSpace(string(body)))
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSpace(string(body)))
	}

	apiErr := &apiError{Status: status}
	if json.Unmarshal(body, apiErr) != nil || apiErr.Code == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
