package fadeapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fadea/fadeclient/internal/credstore"
)

// Login exchanges the client's username and password for a token pair and
// persists it.
func (c *Client) Login(ctx context.Context, password string) error {
	if c.username == "" {
		return fmt.Errorf("username required")
	}
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", password)
	pair, err := c.postTokens(ctx, "token", RequestOptions{Form: form})
	if err != nil {
		return err
	}
	c.log.Info().Str("user", c.username).Msg("logged in")
	return c.storeTokens(pair)
}

// Logout forgets the token pair in memory and in the credential store.
func (c *Client) Logout() error {
	c.mu.Lock()
	c.tokens = credstore.Credentials{}
	c.mu.Unlock()
	if c.username == "" {
		return nil
	}
	if err := c.store.Delete(c.username); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// SessionExpiry returns the expiry encoded in the access token, when it is a
// JWT carrying an exp claim.
func (c *Client) SessionExpiry() (time.Time, bool) {
	return TokenExpiry(c.Tokens().AccessToken)
}

// TokenExpiry decodes the exp claim of a JWT without verifying its signature.
// The server remains the authority; this is for display only.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// refreshFrom obtains fresh tokens after sent was rejected. Concurrent callers
// holding the same refresh token share one refresh call, and a caller whose
// pair was already replaced reuses the replacement. The shared call is bounded
// by the client timeout only; each caller stops waiting when its own ctx ends.
func (c *Client) refreshFrom(ctx context.Context, sent credstore.Credentials) (credstore.Credentials, error) {
	ch := c.refreshes.DoChan(sent.RefreshToken, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		if cur := c.Tokens(); cur.AccessToken != "" &&
			(cur.AccessToken != sent.AccessToken || cur.RefreshToken != sent.RefreshToken) {
			return cur, nil
		}
		pair, err := c.postTokens(ctx, "token/refresh", RequestOptions{
			JSON: map[string]string{"refresh_token": sent.RefreshToken},
		})
		if err != nil {
			c.log.Warn().Err(err).Str("user", c.username).Msg("token refresh failed")
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		c.log.Info().Str("user", c.username).Msg("token refreshed")
		creds := credstore.Credentials{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
		if err := c.storeTokens(pair); err != nil {
			return nil, err
		}
		return creds, nil
	})

	select {
	case <-ctx.Done():
		return credstore.Credentials{}, fmt.Errorf("refresh token: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return credstore.Credentials{}, res.Err
		}
		return res.Val.(credstore.Credentials), nil
	}
}

// postTokens calls a token endpoint. These calls never carry the bearer
// header and are not retried.
func (c *Client) postTokens(ctx context.Context, path string, opts RequestOptions) (tokenPair, error) {
	body, contentType, err := encodeBody(opts)
	if err != nil {
		return tokenPair{}, err
	}
	resp, err := c.send(ctx, http.MethodPost, path, opts, body, contentType, "")
	if err != nil {
		return tokenPair{}, err
	}
	if resp.StatusCode >= 400 {
		return tokenPair{}, &HTTPStatusError{Method: http.MethodPost, Path: path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	var pair tokenPair
	if err := resp.DecodeJSON(&pair); err != nil {
		return tokenPair{}, err
	}
	if pair.AccessToken == "" {
		return tokenPair{}, fmt.Errorf("%s response missing access_token", path)
	}
	return pair, nil
}

// storeTokens replaces the in-memory pair and writes it back to the store.
func (c *Client) storeTokens(pair tokenPair) error {
	creds := credstore.Credentials{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	c.mu.Lock()
	c.tokens = creds
	c.mu.Unlock()
	if c.username == "" {
		return nil
	}
	if err := c.store.Save(c.username, creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}
