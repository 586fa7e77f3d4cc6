// Package directory is an HTTP client of the remote user directory.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRateLimit  = 50
	defaultMaxRetries = 3
	defaultPageSize   = 50
	maxErrorBody      = 512

	usersPath       = "/contact/v3/users"
	batchPath       = "/contact/v3/users/batch"
	departmentPath  = "/contact/v3/departments"
	findByDeptPath  = "/contact/v3/users/find_by_department"
	userIDTypeParam = "user_id_type"
)

// Config holds client parameters.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RateLimit  float64
	MaxRetries uint
	PageSize   int
}

// APIError is a non-zero directory response code.
type APIError struct {
	Status int
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory error: status %d, code %d: %s", e.Status, e.Code, e.Msg)
}

// envelope wraps every directory response.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client implements model.UserSource and model.DepartmentResolver.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint
	pageSize   int
	logger     *logger.Logger
}

var (
	_ model.UserSource         = (*Client)(nil)
	_ model.DepartmentResolver = (*Client)(nil)
)

// NewClient creates a directory client. Requests carry cfg.Token as a bearer
// token and are throttled to cfg.RateLimit per second.
func NewClient(cfg Config, logger *logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("directory base url %q must be absolute", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	httpClient := &http.Client{}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(context.Background(), src)
	}
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1),
		maxRetries: cfg.MaxRetries,
		pageSize:   cfg.PageSize,
		logger:     logger,
	}, nil
}

// FetchOne returns one user. An unknown user yields model.ErrUserNotFoundUpstream.
func (c *Client) FetchOne(ctx context.Context, id string, idType model.IDType) (*model.UserRecord, error) {
	query := url.Values{userIDTypeParam: {string(idType)}}

	var data struct {
		User *model.UserRecord `json:"user"`
	}
	if err := c.get(ctx, usersPath+"/{id}", usersPath+"/"+url.PathEscape(id), query, &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, model.ErrUserNotFoundUpstream
	}
	return data.User, nil
}

// FetchMany returns the users the directory knows, keyed by the requested
// identifier. Unknown identifiers are absent from the map.
func (c *Client) FetchMany(ctx context.Context, ids []string, idType model.IDType) (map[string]*model.UserRecord, error) {
	records := make(map[string]*model.UserRecord, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	query := url.Values{
		userIDTypeParam: {string(idType)},
		"user_ids":      ids,
	}

	var data struct {
		Items []*model.UserRecord `json:"items"`
	}
	if err := c.get(ctx, batchPath, batchPath, query, &data); err != nil {
		return nil, err
	}

	for _, item := range data.Items {
		if item == nil {
			continue
		}
		id := item.IdentifierFor(idType)
		if id == "" {
			c.logger.Warn("Directory client: batch item without requested identifier", "id_type", idType)
			continue
		}
		records[id] = item
	}
	return records, nil
}

// FetchDepartmentMembers returns one page of department members.
func (c *Client) FetchDepartmentMembers(ctx context.Context, departmentID string, idType model.IDType, pageToken string) (model.MemberPage, error) {
	query := url.Values{
		userIDTypeParam: {string(idType)},
		"department_id": {departmentID},
		"page_size":     {strconv.Itoa(c.pageSize)},
	}
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}

	var data struct {
		HasMore   bool                `json:"has_more"`
		PageToken string              `json:"page_token"`
		Items     []*model.UserRecord `json:"items"`
	}
	if err := c.get(ctx, findByDeptPath, findByDeptPath, query, &data); err != nil {
		return model.MemberPage{}, err
	}

	return model.MemberPage{
		Items:         data.Items,
		HasMore:       data.HasMore,
		NextPageToken: data.PageToken,
	}, nil
}

// ResolveDepartment returns the department details.
func (c *Client) ResolveDepartment(ctx context.Context, departmentID string) (model.Department, error) {
	var data struct {
		Department model.Department `json:"department"`
	}
	if err := c.get(ctx, departmentPath+"/{id}", departmentPath+"/"+url.PathEscape(departmentID), nil, &data); err != nil {
		return model.Department{}, err
	}
	return data.Department, nil
}

// get performs a throttled GET with retries on transient failures and decodes
// the envelope data into out. route names the endpoint in logs; path and
// query may carry personal data and never reach logs or returned errors.
func (c *Client) get(ctx context.Context, route, path string, query url.Values, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	operation := func() (json.RawMessage, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		return c.do(ctx, endpoint.String())
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Directory client: retrying request", "route", route, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode directory data: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", withoutURL(err)))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = withoutURL(err)
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("failed to call directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, backoff.Permanent(model.ErrUserNotFoundUpstream)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, &APIError{Status: resp.StatusCode, Msg: truncate(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, backoff.Permanent(&APIError{Status: resp.StatusCode, Msg: truncate(body)})
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Code != 0 {
		return nil, backoff.Permanent(&APIError{Status: resp.StatusCode, Code: env.Code, Msg: env.Msg})
	}

	return env.Data, nil
}

// withoutURL drops the request URL net/http puts into transport errors. The
// URL holds the user identifier, which may be an email or a mobile number.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.Multiplier = 2
	return bo
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
