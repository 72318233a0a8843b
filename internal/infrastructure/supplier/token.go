package supplier

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalogsync/backend/internal/domain/integration"
	"go.uber.org/zap"
)

const (
	pathLogin   = "/authentication/getAccessToken"
	pathRefresh = "/authentication/refreshAccessToken"
)

// accessToken returns a usable session token. Lookup order is memory, the
// persisted store, refresh, then a full login. Concurrent callers share one
// acquisition.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if tok := c.cachedToken(); tok != nil {
		return tok.Token, nil
	}
	v, err, _ := c.group.Do("token", func() (any, error) {
		if tok := c.cachedToken(); tok != nil {
			return tok.Token, nil
		}
		tok, err := c.acquireToken(ctx)
		if err != nil {
			return "", err
		}
		c.storeToken(tok)
		return tok.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) cachedToken() *integration.AccessToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.ValidAt(c.now(), c.cfg.TokenSkew) {
		return c.token
	}
	return nil
}

func (c *Client) storeToken(tok *integration.AccessToken) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// invalidateToken drops the in-memory token if it is still the rejected one
func (c *Client) invalidateToken(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Token == rejected {
		c.token.ExpiresAt = c.now()
	}
}

func (c *Client) acquireToken(ctx context.Context) (*integration.AccessToken, error) {
	now := c.now()

	// another process may have rotated a token this one holds stale
	stored := c.currentToken()
	if persisted := c.loadPersisted(ctx, stored); persisted != nil {
		if persisted.ValidAt(now, c.cfg.TokenSkew) {
			return persisted, nil
		}
		if !stored.RefreshableAt(now) {
			stored = persisted
		}
	}

	if stored.RefreshableAt(now) {
		tok, err := c.refresh(ctx, stored.RefreshToken)
		if err == nil {
			c.persist(ctx, tok)
			return tok, nil
		}
		c.logger.Warn("supplier token refresh failed, logging in", zap.Error(err))
	}

	tok, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	c.persist(ctx, tok)
	return tok, nil
}

// loadPersisted reads the shared token store. A persisted token equal to the
// held one is ignored since it is the token just found stale or rejected.
func (c *Client) loadPersisted(ctx context.Context, held *integration.AccessToken) *integration.AccessToken {
	if c.tokens == nil {
		return nil
	}
	persisted, err := c.tokens.Load(ctx, c.cfg.SupplierID)
	if err != nil {
		if !errors.Is(err, integration.ErrTokenNotFound) {
			c.logger.Warn("failed to load persisted supplier token", zap.Error(err))
		}
		return nil
	}
	if held != nil && persisted.Token == held.Token {
		return nil
	}
	return persisted
}

func (c *Client) currentToken() *integration.AccessToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*integration.AccessToken, error) {
	var data tokenData
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.doRequest(ctx, "POST", pathRefresh, nil, body, "", &data); err != nil {
		return nil, err
	}
	if data.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", integration.ErrSupplierInvalidResponse)
	}
	return data.toDomain(c.cfg.SupplierID, c.now()), nil
}

func (c *Client) login(ctx context.Context) (*integration.AccessToken, error) {
	if !c.loginLimiter.Allow() {
		return nil, fmt.Errorf("%w: login quota for tier %s exhausted", integration.ErrSupplierRateLimited, c.cfg.Tier)
	}
	var data tokenData
	body := map[string]string{"email": c.cfg.Email, "apiKey": c.cfg.APIKey}
	if err := c.doRequest(ctx, "POST", pathLogin, nil, body, "", &data); err != nil {
		if errors.Is(err, integration.ErrSupplierRequestFailed) {
			return nil, fmt.Errorf("%w: %v", integration.ErrSupplierAuthFailed, err)
		}
		return nil, err
	}
	if data.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", integration.ErrSupplierInvalidResponse)
	}
	c.logger.Info("logged in to supplier")
	return data.toDomain(c.cfg.SupplierID, c.now()), nil
}

func (c *Client) persist(ctx context.Context, tok *integration.AccessToken) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Save(ctx, tok); err != nil {
		c.logger.Warn("failed to persist supplier token", zap.Error(err))
	}
}
