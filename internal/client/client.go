// Package client is a typed caller for the spendwise REST API.
package client

import (
	"bytes"
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

	"spendwise/internal/core"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		return fmt.Sprintf("spendwise: %s (%d): %s", msg, e.Status, e.Detail)
	}
	return fmt.Sprintf("spendwise: %s (%d)", msg, e.Status)
}

// Is lets callers test 404s with errors.Is(err, core.ErrNotFound).
func (e *APIError) Is(target error) bool {
	return target == core.ErrNotFound && e.Status == http.StatusNotFound
}

// ExpenseQuery narrows ListExpenses. Category wins over the date range.
type ExpenseQuery struct {
	Category  string
	StartDate string
	EndDate   string
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("spendwise: parsing server URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("spendwise: server URL %q must be http(s)://host[:port]", baseURL)
	}
	return &Client{baseURL: u, http: &http.Client{}}, nil
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) ListExpenses(ctx context.Context, q ExpenseQuery) ([]core.Expense, error) {
	params := url.Values{}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.StartDate != "" {
		params.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("endDate", q.EndDate)
	}
	var out []core.Expense
	return out, c.do(ctx, http.MethodGet, "/api/expenses", params, nil, &out)
}

func (c *Client) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var out core.Expense
	return out, c.do(ctx, http.MethodGet, "/api/expenses/"+strconv.FormatInt(id, 10), nil, nil, &out)
}

func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var out core.Expense
	return out, c.do(ctx, http.MethodPost, "/api/expenses", nil, in, &out)
}

func (c *Client) UpdateExpense(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error) {
	var out core.Expense
	return out, c.do(ctx, http.MethodPut, "/api/expenses/"+strconv.FormatInt(id, 10), nil, p, &out)
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	return out, c.do(ctx, http.MethodGet, "/api/budgets", nil, nil, &out)
}

func (c *Client) BudgetByMonth(ctx context.Context, month string) (core.Budget, error) {
	var out core.Budget
	return out, c.do(ctx, http.MethodGet, "/api/budgets/month/"+url.PathEscape(month), nil, nil, &out)
}

// SaveBudget creates the month's budget or replaces its amount.
func (c *Client) SaveBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	var out core.Budget
	return out, c.do(ctx, http.MethodPost, "/api/budgets", nil, in, &out)
}

func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/budgets/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// Summary fetches the month's aggregate; empty month means the server's
// current month.
func (c *Client) Summary(ctx context.Context, month string) (core.Summary, error) {
	params := url.Values{}
	if month != "" {
		params.Set("month", month)
	}
	var out core.Summary
	return out, c.do(ctx, http.MethodGet, "/api/analytics/summary", params, nil, &out)
}

func (c *Client) Trend(ctx context.Context, end string, months int) ([]core.TrendPoint, error) {
	params := url.Values{}
	if end != "" {
		params.Set("end", end)
	}
	if months > 0 {
		params.Set("months", strconv.Itoa(months))
	}
	var out []core.TrendPoint
	return out, c.do(ctx, http.MethodGet, "/api/analytics/trend", params, nil, &out)
}

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	return out, c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &out)
}

// do sends body as JSON and decodes a 2xx reply into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = params.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("spendwise: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("spendwise: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("spendwise: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("spendwise: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message, apiErr.Detail = eb.Message, eb.Error
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("spendwise: parsing response: %w", err)
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
