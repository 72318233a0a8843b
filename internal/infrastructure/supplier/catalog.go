package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	pathCategories   = "/product/getCategory"
	pathProductList  = "/product/list"
	pathProductQuery = "/product/query"
	pathStockByVID   = "/product/stock/queryByVid"
	pathStockByPID   = "/product/stock/queryByPid"
)

// ListCategories returns the supplier category tree
func (c *Client) ListCategories(ctx context.Context) ([]integration.Category, error) {
	var data []categoryFirst
	if err := c.call(ctx, http.MethodGet, pathCategories, nil, nil, &data); err != nil {
		return nil, err
	}
	return convertCategories(data), nil
}

// SearchProducts runs a paged catalog search
func (c *Client) SearchProducts(ctx context.Context, q integration.SearchQuery) (*integration.SearchPage, error) {
	q = q.Normalize()
	query := url.Values{}
	query.Set("pageNum", strconv.Itoa(q.PageNum))
	query.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Keyword != "" {
		query.Set("productNameEn", q.Keyword)
	}
	if q.CategoryID != "" {
		query.Set("categoryId", q.CategoryID)
	}
	if q.CountryCode != "" {
		query.Set("countryCode", strings.ToUpper(q.CountryCode))
	}
	if q.MinPrice != nil {
		query.Set("startSellPrice", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		query.Set("endSellPrice", q.MaxPrice.String())
	}

	var data productListData
	if err := c.call(ctx, http.MethodGet, pathProductList, query, nil, &data); err != nil {
		return nil, err
	}
	page := data.toDomain()
	if page.PageNum == 0 {
		page.PageNum = q.PageNum
	}
	if page.PageSize == 0 {
		page.PageSize = q.PageSize
	}
	return page, nil
}

// GetProduct fetches full product details. features enables the optional
// reviews and video blocks.
func (c *Client) GetProduct(ctx context.Context, externalID string, features integration.ProductFeatures) (*integration.ProductDetail, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("%w: product id is required", integration.ErrSupplierRequestFailed)
	}
	query := url.Values{}
	query.Set("pid", externalID)
	var enabled []string
	if features.Reviews {
		enabled = append(enabled, "enable_reviews")
	}
	if features.Video {
		enabled = append(enabled, "enable_video")
	}
	if len(enabled) > 0 {
		query.Set("features", strings.Join(enabled, ","))
	}

	var data productDetailData
	if err := c.call(ctx, http.MethodGet, pathProductQuery, query, nil, &data); err != nil {
		return nil, err
	}
	if data.PID == "" {
		return nil, fmt.Errorf("%w: product %s", integration.ErrProductDelisted, externalID)
	}
	return data.toDomain(), nil
}

// GetVariantStock returns per-warehouse stock rows for one variant
func (c *Client) GetVariantStock(ctx context.Context, externalVariantID string) ([]integration.VariantStock, error) {
	query := url.Values{}
	query.Set("vid", externalVariantID)
	var rows []stockItem
	err := c.withStockRetry(ctx, externalVariantID, func() error {
		rows = nil
		return c.call(ctx, http.MethodGet, pathStockByVID, query, nil, &rows)
	})
	if err != nil {
		return nil, err
	}
	return convertStock(rows, externalVariantID), nil
}

// GetProductStock returns stock rows for every variant of a product
func (c *Client) GetProductStock(ctx context.Context, externalProductID string) ([]integration.VariantStock, error) {
	query := url.Values{}
	query.Set("pid", externalProductID)
	var rows []stockItem
	err := c.withStockRetry(ctx, externalProductID, func() error {
		rows = nil
		return c.call(ctx, http.MethodGet, pathStockByPID, query, nil, &rows)
	})
	if err != nil {
		return nil, err
	}
	return convertStock(rows, ""), nil
}

// withStockRetry runs op up to StockRetryAttempts times with linear backoff.
// A delisted product stops the retries immediately.
func (c *Client) withStockRetry(ctx context.Context, id string, op func() error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: c.cfg.StockRetryStep}, uint64(c.cfg.StockRetryAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("stock fetch failed, retrying",
			zap.String("id", id),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, policy, notify, &sleepTimer{sleep: c.sleep})
	if err != nil && !isPermanent(err) && ctx.Err() == nil {
		return fmt.Errorf("stock for %s unavailable after %d attempts: %w", id, attempt, err)
	}
	return err
}

func isPermanent(err error) bool {
	return errors.Is(err, integration.ErrProductDelisted) || errors.Is(err, integration.ErrSupplierAuthFailed)
}

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func (b *linearBackOff) Reset() { b.n = 0 }

// sleepTimer adapts a sleep func to backoff.Timer
type sleepTimer struct {
	sleep func(time.Duration)
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	go func(ch chan time.Time) {
		t.sleep(d)
		ch <- time.Now()
	}(t.c)
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.c }
