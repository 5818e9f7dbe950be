// Package ledger implements the Sage 200 Evolution REST adapter.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

// Endpoint names under {server}:{port}/freedom.core/{company}/SDK/Rest/
const (
	endpointCustomerFind        = "CustomerFind"
	endpointCustomerList        = "CustomerList"
	endpointCustomerTransaction = "CustomerTransactionListByAccountCode"
)

const (
	acceptJSON = "application/json"
	acceptXML  = "application/xml, text/xml"
)

// Client implements invoicing.Ledger and invoicing.LedgerDirectory
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests, custom transports)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new ledger client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FindCustomer looks up an AR account by code
func (c *Client) FindCustomer(ctx context.Context, creds invoicing.Credentials, accountCode string) (*invoicing.Customer, error) {
	query := url.Values{}
	query.Set("module", "AR")
	query.Set("code", accountCode)

	status, body, err := c.do(ctx, http.MethodGet, creds, endpointCustomerFind, query, nil, acceptJSON)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: customer lookup HTTP %d", invoicing.ErrLedgerTransport, status)
	}
	return parseCustomer(accountCode, body)
}

// PostInvoice sends {"<op>": invoice} and classifies the answer
func (c *Client) PostInvoice(ctx context.Context, creds invoicing.Credentials, op invoicing.Operation, invoice json.RawMessage) (invoicing.LedgerResponse, error) {
	envelope, err := json.Marshal(map[string]json.RawMessage{op.String(): invoice})
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to encode %s envelope: %w", op, err)
	}

	status, body, err := c.do(ctx, http.MethodPost, creds, op.String(), nil, envelope, acceptJSON)
	if err != nil {
		return nil, err
	}
	return invoicing.ClassifyPostResponse(status, body)
}

// ListCustomers returns one page of customers ordered by account
func (c *Client) ListCustomers(ctx context.Context, creds invoicing.Credentials, pageNumber, pageSize int) ([]invoicing.Record, error) {
	query := url.Values{}
	query.Set("orderby", "Account")
	query.Set("pageNumber", strconv.Itoa(pageNumber))
	query.Set("pageSize", strconv.Itoa(pageSize))

	return c.list(ctx, creds, endpointCustomerList, query, "CustomerDto")
}

// ListCustomerTransactions returns one page of an account's transactions ordered by date
func (c *Client) ListCustomerTransactions(ctx context.Context, creds invoicing.Credentials, accountCode string, pageNumber, pageSize int) ([]invoicing.Record, error) {
	query := url.Values{}
	query.Set("code", accountCode)
	query.Set("orderBy", "TxDate")
	query.Set("pageNumber", strconv.Itoa(pageNumber))
	query.Set("pageSize", strconv.Itoa(pageSize))

	return c.list(ctx, creds, endpointCustomerTransaction, query, "CustomerTransactionDto")
}

func (c *Client) list(ctx context.Context, creds invoicing.Credentials, endpoint string, query url.Values, item string) ([]invoicing.Record, error) {
	status, body, err := c.do(ctx, http.MethodGet, creds, endpoint, query, nil, acceptXML)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: %w: %s HTTP %d", invoicing.ErrLedgerTransport, invoicing.ErrLedgerStatus, endpoint, status)
	}

	records, err := decodeRecordList(body, item)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", invoicing.ErrLedgerTransport, endpoint, err)
	}
	return records, nil
}

// do issues one request. Only dial, timeout and read failures are errors;
// HTTP statuses are left to the caller.
func (c *Client) do(
	ctx context.Context,
	method string,
	creds invoicing.Credentials,
	endpoint string,
	query url.Values,
	payload []byte,
	accept string,
) (int, []byte, error) {
	target, err := c.buildURL(creds, endpoint, query)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", invoicing.ErrValidation, err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("ledger: failed to create request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Ledger request failed",
			zap.String("endpoint", endpoint),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return 0, nil, fmt.Errorf("%w: %v", invoicing.ErrLedgerTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", invoicing.ErrLedgerTransport, err)
	}

	c.logger.Debug("Ledger request completed",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)),
		zap.Duration("duration", time.Since(start)),
	)

	return resp.StatusCode, respBody, nil
}

// buildURL renders {server}:{port}/{base}/{company}/SDK/Rest/{endpoint}?query.
// A server without scheme defaults to http.
func (c *Client) buildURL(creds invoicing.Credentials, endpoint string, query url.Values) (string, error) {
	server := strings.TrimRight(strings.TrimSpace(creds.Server), "/")
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server %q: %w", creds.Server, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server %q", creds.Server)
	}
	if port := strings.TrimSpace(creds.Port); port != "" && u.Port() == "" {
		u.Host = u.Host + ":" + port
	}
	u.Path = path.Join("/", u.Path, c.config.BasePath, creds.Company, "SDK", "Rest", endpoint)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// parseCustomer interprets a CustomerFind body. An empty body, null, {} or
// HasError true all mean the account does not exist.
func parseCustomer(accountCode string, body []byte) (*invoicing.Customer, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: %s", invoicing.ErrCustomerNotFound, accountCode)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: invalid customer response: %v", invoicing.ErrLedgerTransport, err)
	}
	if len(fields) == 0 || isTrue(fields["HasError"]) {
		return nil, fmt.Errorf("%w: %s", invoicing.ErrCustomerNotFound, accountCode)
	}

	detail := json.RawMessage(trimmed)
	if dto, ok := fields["CustomerDto"]; ok && !bytes.Equal(bytes.TrimSpace(dto), []byte("null")) {
		detail = dto
	}
	return &invoicing.Customer{Code: accountCode, Detail: detail}, nil
}

func isTrue(data json.RawMessage) bool {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

var (
	_ invoicing.Ledger          = (*Client)(nil)
	_ invoicing.LedgerDirectory = (*Client)(nil)
)
