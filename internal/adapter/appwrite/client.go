package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/awsync/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

var (
	_ domain.DocumentRepository = (*Client)(nil)
	_ domain.AccountRepository  = (*Client)(nil)
	_ domain.Subscriber         = (*Realtime)(nil)
	_ domain.AuthFlow           = (*AuthFlow)(nil)
)

// Credentials selects how requests are authenticated. At most one of
// APIKey, Session and JWT is normally set.
type Credentials struct {
	APIKey  string
	Session string
	JWT     string
}

// Client implements domain.DocumentRepository and domain.AccountRepository
// over the Appwrite REST API.
type Client struct {
	endpoint   string
	project    string
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewClient creates a REST client for endpoint (including the /v1 suffix).
// A JWT whose exp claim has passed is rejected here rather than on first use.
func NewClient(endpoint, project string, creds Credentials, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if endpoint == "" || project == "" {
		return nil, fmt.Errorf("%w: endpoint and project are required", domain.ErrInvalidTarget)
	}
	if creds.JWT != "" {
		if err := checkJWT(creds.JWT, time.Now()); err != nil {
			return nil, err
		}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		project:  project,
		creds:    creds,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:     logger,
		retryDelay: baseRetryDelay,
	}, nil
}

// response is a successful reply
type response struct {
	body   []byte
	header http.Header
}

// doRequest performs an authenticated request against the Appwrite API.
// 5xx replies to GET are retried with exponential backoff; other methods
// are sent once. Failures are decoded into *domain.ServiceError.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) (*response, error) {
	reqURL := c.endpoint + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	retries := maxRetries
	if method != http.MethodGet {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "path", path)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		c.logger.Debug("appwrite request", "method", method, "path", path, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Error("appwrite request failed", "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 500 && resp.StatusCode < 600 && retries > 0 {
			lastErr = decodeError(resp.StatusCode, respBody)
			c.logger.Warn("appwrite server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt,
				"maxRetries", retries,
				"path", path,
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			svcErr := decodeError(resp.StatusCode, respBody)
			c.logger.Debug("appwrite request rejected", "status", resp.StatusCode, "type", svcErr.Type, "path", path)
			return nil, svcErr
		}

		return &response{body: respBody, header: resp.Header}, nil
	}

	c.logger.Error("appwrite request failed after retries", "error", lastErr, "path", path)
	return nil, lastErr
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Appwrite-Project", c.project)
	if c.creds.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", c.creds.APIKey)
	}
	if c.creds.Session != "" {
		req.Header.Set("X-Appwrite-Session", c.creds.Session)
	}
	if c.creds.JWT != "" {
		req.Header.Set("X-Appwrite-JWT", c.creds.JWT)
	}
}

// decodeError builds a ServiceError from an error body, falling back to
// the raw body when it is not JSON.
func decodeError(status int, body []byte) *domain.ServiceError {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Message == "" {
		return &domain.ServiceError{Code: status, Message: strings.TrimSpace(string(body))}
	}
	code := er.Code
	if code == 0 {
		code = status
	}
	return &domain.ServiceError{Code: code, Type: er.Type, Message: er.Message}
}

// ListDocuments returns the documents of a collection matching queries
func (c *Client) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []string) (domain.DocumentList, error) {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents",
		url.PathEscape(databaseID), url.PathEscape(collectionID))

	var query url.Values
	if len(queries) > 0 {
		query = url.Values{"queries[]": queries}
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return domain.DocumentList{}, err
	}

	var list domain.DocumentList
	if err := json.Unmarshal(resp.body, &list); err != nil {
		return domain.DocumentList{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return list, nil
}

// GetDocument returns a single document
func (c *Client) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*domain.Document, error) {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents/%s",
		url.PathEscape(databaseID), url.PathEscape(collectionID), url.PathEscape(documentID))

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var doc domain.Document
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &doc, nil
}

// GetAccount returns the user owning the session or JWT
func (c *Client) GetAccount(ctx context.Context) (*domain.User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/account", nil, nil)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(resp.body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &user, nil
}

// CreateEmailSession logs in with email and password and returns the
// session secret. Non-browser clients receive the secret in the
// X-Fallback-Cookies header.
func (c *Client) CreateEmailSession(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/account/sessions/email", nil,
		sessionRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var session sessionResponse
	if err := json.Unmarshal(resp.body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	secret := session.Secret
	if secret == "" {
		secret = fallbackSession(resp.header.Get("X-Fallback-Cookies"), c.project)
	}
	if secret == "" {
		return nil, errors.New("server did not return a session secret")
	}

	return &domain.AuthResult{
		Session: secret,
		UserID:  session.UserID,
		Email:   email,
	}, nil
}

// fallbackSession extracts a_session_<project> from the X-Fallback-Cookies
// JSON object
func fallbackSession(header, project string) string {
	if header == "" {
		return ""
	}
	var cookies map[string]string
	if err := json.Unmarshal([]byte(header), &cookies); err != nil {
		return ""
	}
	if s := cookies["a_session_"+strings.ToLower(project)]; s != "" {
		return s
	}
	return cookies["a_session_"+project]
}
