// Package backend talks to the service that owns projects and expressions.
package backend

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

	"github.com/roach88/exprstate/internal/ir"
)

const (
	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 10 * time.Second

	maxBodySize = 16 << 20
	userAgent   = "exprstate-client/1.0"
)

// Client is the backend API used by the effect runner.
type Client interface {
	ListBindings(ctx context.Context, projectHash ir.ExprHash) (ir.ProjectData, error)
	CreateProject(ctx context.Context) (ir.ProjectData, error)
	FetchExpressions(ctx context.Context, hashes []ir.ExprHash, projectHash ir.ExprHash) (map[ir.ExprHash]ir.ExpressionData, error)
}

// fetchRequest is the body of POST /project/expressions.
type fetchRequest struct {
	Hashes      []ir.ExprHash `json:"hashes"`
	ProjectHash ir.ExprHash   `json:"projectHash"`
}

// errorResponse is the body the server sends with non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// HTTPClient is a Client over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPClient returns a client for baseURL. A zero timeout uses DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// ListBindings returns the bindings of an existing project.
func (c *HTTPClient) ListBindings(ctx context.Context, projectHash ir.ExprHash) (ir.ProjectData, error) {
	var data ir.ProjectData
	path := "/project/bindings/" + url.PathEscape(string(projectHash))
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return ir.ProjectData{}, err
	}
	return normaliseProject(data), nil
}

// CreateProject asks the backend for a new empty project.
func (c *HTTPClient) CreateProject(ctx context.Context) (ir.ProjectData, error) {
	var data ir.ProjectData
	if err := c.do(ctx, http.MethodPost, "/project/create", struct{}{}, &data); err != nil {
		return ir.ProjectData{}, err
	}
	return normaliseProject(data), nil
}

// FetchExpressions resolves hashes within the given project.
func (c *HTTPClient) FetchExpressions(ctx context.Context, hashes []ir.ExprHash, projectHash ir.ExprHash) (map[ir.ExprHash]ir.ExpressionData, error) {
	out := map[ir.ExprHash]ir.ExpressionData{}
	body := fetchRequest{Hashes: hashes, ProjectHash: projectHash}
	if err := c.do(ctx, http.MethodPost, "/project/expressions", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do performs one request and decodes a 2xx JSON body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Code: ErrCodeRequestFailed, Message: err.Error(), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Code: ErrCodeRequestFailed, StatusCode: resp.StatusCode, Message: "read response", Cause: err}
	}

	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Code:       ErrCodeDecodeFailed,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decode %s %s response", method, path),
			Cause:      err,
		}
	}
	return nil
}

func parseErrorResponse(status int, body []byte) error {
	code := ErrCodeHTTPStatus
	if status == http.StatusNotFound {
		code = ErrCodeNotFound
	}
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return &Error{Code: code, StatusCode: status, Message: resp.Error}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Code: code, StatusCode: status, Message: msg}
}

// normaliseProject replaces nil binding maps with empty ones.
func normaliseProject(p ir.ProjectData) ir.ProjectData {
	p.Bindings = ir.CloneBindings(p.Bindings)
	p.TypeBindings = ir.CloneBindings(p.TypeBindings)
	return p
}
