package fadeapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GetRecords fetches one page of records. The result is returned in server
// order; deduplication and sorting belong to the caller.
func (c *Client) GetRecords(ctx context.Context, query RecordQuery) ([]Record, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if query.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	values := url.Values{}
	values.Set("limit", strconv.Itoa(query.Limit))
	if since := strings.TrimSpace(query.Since); since != "" {
		values.Set("since", since)
	}
	if until := strings.TrimSpace(query.Until); until != "" {
		values.Set("until", until)
	}
	var payload []Record
	if err := c.doJSON(ctx, http.MethodGet, "records/", RequestOptions{Query: values}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// DownloadCSV returns the server's CSV export of all records.
func (c *Client) DownloadCSV(ctx context.Context) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	resp, err := c.Request(ctx, http.MethodGet, "records/csv", RequestOptions{
		Header: http.Header{"Accept": []string{"text/csv, */*"}},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DeleteAllRecords removes every record on the server.
func (c *Client) DeleteAllRecords(ctx context.Context) (Info, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Info
	if err := c.doJSON(ctx, http.MethodDelete, "records/", RequestOptions{}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetCurrentUser returns the authenticated user, including its role.
func (c *Client) GetCurrentUser(ctx context.Context) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	var payload User
	if err := c.doJSON(ctx, http.MethodGet, "users/me", RequestOptions{}, &payload); err != nil {
		return User{}, err
	}
	return payload, nil
}

// ListUsers returns all accounts.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []User
	if err := c.doJSON(ctx, http.MethodGet, "users/", RequestOptions{}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateUser creates an account. Validation is left to the server.
func (c *Client) CreateUser(ctx context.Context, payload UserCreate) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	var created User
	if err := c.doJSON(ctx, http.MethodPost, "users/", RequestOptions{JSON: payload}, &created); err != nil {
		return User{}, err
	}
	return created, nil
}

// UpdateUser sends the fields set in payload to users/{id}.
func (c *Client) UpdateUser(ctx context.Context, id int64, payload UserUpdate) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	var updated User
	path := "users/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, http.MethodPut, path, RequestOptions{JSON: payload}, &updated); err != nil {
		return User{}, err
	}
	return updated, nil
}

// Status returns the server's health/info payload. The server accepts it
// without a token, but it is sent through Request like every other call so an
// expired session is refreshed here too.
func (c *Client) Status(ctx context.Context) (Info, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Info
	if err := c.doJSON(ctx, http.MethodGet, "status", RequestOptions{}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
