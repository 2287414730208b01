package bigcommerce

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

	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.bigcommerce.com"

// Catalog is the store API used by sync, product edits and the executor
type Catalog interface {
	Ping(ctx context.Context) (*StoreInfo, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) error
	UpdateProductPrice(ctx context.Context, id int64, upd PriceUpdate) error
	UpdateVariantPrice(ctx context.Context, productID, variantID int64, upd PriceUpdate) error
}

// Factory builds store clients sharing one HTTP transport
type Factory struct {
	cfg    config.BigCommerceConfig
	http   *http.Client
	logger *zap.Logger
}

func NewFactory(cfg config.BigCommerceConfig, logger *zap.Logger) *Factory {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 250
	}
	return &Factory{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("bigcommerce"),
	}
}

// For returns a client bound to one store
func (f *Factory) For(creds Credentials) Catalog {
	return &Client{
		cfg:    f.cfg,
		creds:  creds,
		http:   f.http,
		logger: f.logger.With(zap.String("store_hash", creds.StoreHash)),
	}
}

// Client talks to the v3 catalog API of a single store
type Client struct {
	cfg    config.BigCommerceConfig
	creds  Credentials
	http   *http.Client
	logger *zap.Logger
}

func (c *Client) storeURL(version, path string) string {
	return fmt.Sprintf("%s/stores/%s/%s%s", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.creds.StoreHash), version, path)
}

func (c *Client) Ping(ctx context.Context) (*StoreInfo, error) {
	raw, err := c.do(ctx, http.MethodGet, c.storeURL("v2", "/store"), nil)
	if err != nil {
		return nil, err
	}
	var info StoreInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode store info: %w", err)
	}
	return &info, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	return listAll[Category](ctx, c, "/catalog/categories", nil)
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	return listAll[Product](ctx, c, "/catalog/products", url.Values{"include": {"variants"}})
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	raw, err := c.do(ctx, http.MethodGet, c.storeURL("v3", fmt.Sprintf("/catalog/products/%d?include=variants", id)), nil)
	if err != nil {
		return nil, err
	}
	var env envelope[Product]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode product %d: %w", id, err)
	}
	return &env.Data, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) error {
	body := priceBody(upd.PriceUpdate)
	if upd.Name != nil {
		body["name"] = *upd.Name
	}
	if upd.SKU != nil {
		body["sku"] = *upd.SKU
	}
	if upd.Description != nil {
		body["description"] = *upd.Description
	}
	if upd.InventoryLevel != nil {
		body["inventory_level"] = *upd.InventoryLevel
	}
	if upd.Weight != nil {
		body["weight"] = money(*upd.Weight)
	}
	if upd.IsVisible != nil {
		body["is_visible"] = *upd.IsVisible
	}
	if len(body) == 0 {
		return nil
	}
	_, err := c.do(ctx, http.MethodPut, c.storeURL("v3", fmt.Sprintf("/catalog/products/%d", id)), body)
	return err
}

func (c *Client) UpdateProductPrice(ctx context.Context, id int64, upd PriceUpdate) error {
	return c.UpdateProduct(ctx, id, ProductUpdate{PriceUpdate: upd})
}

func (c *Client) UpdateVariantPrice(ctx context.Context, productID, variantID int64, upd PriceUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	path := fmt.Sprintf("/catalog/products/%d/variants/%d", productID, variantID)
	_, err := c.do(ctx, http.MethodPut, c.storeURL("v3", path), priceBody(upd))
	return err
}

func priceBody(upd PriceUpdate) map[string]any {
	body := map[string]any{}
	switch {
	case upd.InheritPrice:
		body["price"] = nil
	case upd.RegularPrice != nil:
		body["price"] = money(*upd.RegularPrice)
	}
	if upd.SalePrice != nil {
		if upd.SalePrice.Valid {
			body["sale_price"] = money(upd.SalePrice.Decimal)
		} else {
			body["sale_price"] = json.Number("0")
		}
	}
	return body
}

// money encodes a decimal as a JSON number with two places
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", strconv.Itoa(c.cfg.PageSize))

	var out []T
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))
		raw, err := c.do(ctx, http.MethodGet, c.storeURL("v3", path)+"?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var env envelope[[]T]
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", path, page, err)
		}
		out = append(out, env.Data...)
		if page >= env.Meta.Pagination.TotalPages || len(env.Data) == 0 {
			return out, nil
		}
	}
}

// do sends one request, retrying rate limits and server errors with exponential backoff
func (c *Client) do(ctx context.Context, method, target string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	bo := backoff.NewExponentialBackOff()
	if c.cfg.RetryInitialInterval > 0 {
		bo.InitialInterval = c.cfg.RetryInitialInterval
	}
	tries := c.cfg.MaxRetries
	if tries == 0 {
		tries = 1
	}

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("X-Auth-Token", c.creds.AccessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, &errorx.ProviderError{Provider: errorx.ProviderBigCommerce, Code: codeUnavailable, Message: err.Error()}
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 300 {
			return raw, nil
		}

		perr := providerError(resp.StatusCode, raw)
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt))
		if !retryable(resp.StatusCode) {
			return nil, backoff.Permanent(perr)
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return nil, errors.Join(perr, backoff.RetryAfter(secs))
		}
		return nil, perr
	}

	raw, err := backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(tries))
	if err != nil {
		if pe, ok := errorx.AsProviderError(err); ok {
			return nil, pe
		}
		return nil, fmt.Errorf("bigcommerce %s %s: %w", method, target, err)
	}
	return raw, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

const (
	codeUnauthorized  = "UNAUTHORIZED"
	codeForbidden     = "FORBIDDEN"
	codeNotFound      = "NOT_FOUND"
	codeUnprocessable = "UNPROCESSABLE"
	codeRateLimited   = "RATE_LIMITED"
	codeUnavailable   = "UNAVAILABLE"
)

func providerError(status int, raw []byte) *errorx.ProviderError {
	pe := &errorx.ProviderError{
		Provider:   errorx.ProviderBigCommerce,
		HTTPStatus: status,
		Message:    gjson.GetBytes(raw, "title").String(),
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		pe.Code = codeUnauthorized
	case status == http.StatusForbidden:
		pe.Code = codeForbidden
	case status == http.StatusNotFound:
		pe.Code = codeNotFound
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		pe.Code = codeUnprocessable
		pe.Kind = errorx.ErrInvalidInput
	case status == http.StatusTooManyRequests:
		pe.Code = codeRateLimited
	case status >= 500:
		pe.Code = codeUnavailable
	default:
		pe.Code = "HTTP_" + strconv.Itoa(status)
	}
	return pe
}

var _ Catalog = (*Client)(nil)
