package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wooms/storesync/internal/domain/shared"
)

// maxResponseSize caps remote response bodies at 32MB
const maxResponseSize = 32 << 20

// pageLimit is the page size of the ERP list endpoints
const pageLimit = 100

// Config holds the ERP client settings
type Config struct {
	BaseURL           string
	Login             string
	Password          string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        uint64
}

// Client is the HTTP client for the system-of-record API. It authenticates
// with a bearer token obtained from the login credentials, throttles
// requests to the account's rate limit, and retries transient failures
// (429 and 5xx) with exponential backoff.
//
// Client is not safe for concurrent use; the engine is single-threaded.
type Client struct {
	httpClient *http.Client
	baseURL    string
	login      string
	password   string
	limiter    *rate.Limiter
	maxRetries uint64
	log        *zap.Logger

	token string

	productAttrs *attributeSet
	orderAttrs   *attributeSet
}

// NewClient creates an ERP client
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 4
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		login:      cfg.Login,
		password:   cfg.Password,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

// errorPayload is the ERP error response shape
type errorPayload struct {
	Errors []struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	} `json:"errors"`
}

// ensureToken logs in once and caches the bearer token
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/security/token", nil)
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.login, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return remoteError(resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return shared.NewRemoteError("erp", resp.StatusCode, "token response carries no access token")
	}
	c.token = payload.AccessToken
	c.log.Debug("erp token obtained")
	return nil
}

// do performs one authenticated API call. Transient failures are retried;
// permanent failures surface as RemoteError with the decoded error payload.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	attempt := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network failures are worth a retry.
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return raw, nil
		}

		remoteErr := remoteError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, remoteErr
		}
		return nil, backoff.Permanent(remoteErr)
	}

	var raw []byte
	operation := func() error {
		var err error
		raw, err = attempt()
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Warn("erp request retried",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// remoteError decodes the ERP error payload into a RemoteError
func remoteError(status int, body []byte) error {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			messages = append(messages, e.Error)
		}
		return shared.NewRemoteError("erp", status, messages...)
	}
	return shared.NewRemoteError("erp", status)
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// listPage is the envelope of every ERP list endpoint
type listPage struct {
	Rows []json.RawMessage `json:"rows"`
	Meta struct {
		Size   int `json:"size"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"meta"`
}

// listAll walks a list endpoint with limit/offset pagination, invoking the
// callback for every row.
func (c *Client) listAll(ctx context.Context, path string, query url.Values, each func(json.RawMessage) error) error {
	offset := 0
	for {
		q := url.Values{}
		for key, values := range query {
			q[key] = values
		}
		q.Set("limit", strconv.Itoa(pageLimit))
		q.Set("offset", strconv.Itoa(offset))

		var page listPage
		if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
			return err
		}
		for _, row := range page.Rows {
			if err := each(row); err != nil {
				return err
			}
		}

		offset += len(page.Rows)
		if len(page.Rows) == 0 || offset >= page.Meta.Size {
			return nil
		}
	}
}

// ---------------------------------------------------------------------------
// Shared row fragments
// ---------------------------------------------------------------------------

// metaRef is the reference envelope of every ERP entity
type metaRef struct {
	Meta struct {
		Href string `json:"href"`
		Type string `json:"type,omitempty"`
	} `json:"meta"`
}

func ref(href string) metaRef {
	var m metaRef
	m.Meta.Href = href
	return m
}

// namedRow is a row carrying id, reference and display name
type namedRow struct {
	metaRef
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r namedRow) toNamedRef() shared.NamedRef {
	return shared.NamedRef{ID: r.ID, Ref: r.Meta.Href, Name: r.Name}
}

// attributeRow is one custom attribute value on an entity
type attributeRow struct {
	metaRef
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// attributeSet resolves custom attribute metadata by display name so values
// can be read and written by attribute id.
type attributeSet struct {
	byName map[string]string // name -> metadata href
}

func (s *attributeSet) href(name string) (string, bool) {
	href, ok := s.byName[name]
	return href, ok
}

// loadAttributes fetches the attribute metadata of the given entity type
func (c *Client) loadAttributes(ctx context.Context, entityType string) (*attributeSet, error) {
	set := &attributeSet{byName: make(map[string]string)}
	err := c.listAll(ctx, "/entity/"+entityType+"/metadata/attributes", nil, func(row json.RawMessage) error {
		var attr struct {
			metaRef
			Name string `json:"name"`
		}
		if err := json.Unmarshal(row, &attr); err != nil {
			return fmt.Errorf("parse attribute metadata: %w", err)
		}
		set.byName[attr.Name] = attr.Meta.Href
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s attributes: %w", entityType, err)
	}
	return set, nil
}
