// Package nocodb adapts the NocoDB v2 records API to the domain repositories.
package nocodb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const pageSize = 100

// Tables maps each collection to its NocoDB table id.
type Tables struct {
	Padron         string
	Usuarios       string
	Propuestas     string
	Votos          string
	Reportes       string
	Notificaciones string
}

// Client talks to the table-oriented REST backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type listResponse struct {
	List     []Record `json:"list"`
	PageInfo struct {
		IsLastPage bool `json:"isLastPage"`
	} `json:"pageInfo"`
}

// List returns records matching where. limit <= 0 pages through every result.
func (c *Client) List(ctx context.Context, table string, where Where, limit int) ([]Record, error) {
	out := make([]Record, 0)
	offset := 0
	for {
		size := pageSize
		if limit > 0 && limit-len(out) < size {
			size = limit - len(out)
		}
		q := url.Values{}
		if !where.IsZero() {
			q.Set("where", where.String())
		}
		q.Set("limit", strconv.Itoa(size))
		q.Set("offset", strconv.Itoa(offset))

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.recordsURL(table)+"?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.List...)
		offset += len(page.List)
		if page.PageInfo.IsLastPage || len(page.List) == 0 || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
	}
}

// Count returns the number of records matching where.
func (c *Client) Count(ctx context.Context, table string, where Where) (int, error) {
	q := url.Values{}
	if !where.IsZero() {
		q.Set("where", where.String())
	}
	var res struct {
		Count json.Number `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, c.recordsURL(table)+"/count?"+q.Encode(), nil, &res); err != nil {
		return 0, err
	}
	n, err := res.Count.Int64()
	if err != nil {
		return 0, fmt.Errorf("nocodb count: %w", err)
	}
	return int(n), nil
}

// Create inserts fields and returns the new record id.
func (c *Client) Create(ctx context.Context, table string, fields map[string]any) (int64, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, c.recordsURL(table), fields, &rec); err != nil {
		return 0, err
	}
	id := rec.ID()
	if id == 0 {
		return 0, fmt.Errorf("nocodb create %s: response carried no id", table)
	}
	return id, nil
}

// Update patches the record identified by id.
func (c *Client) Update(ctx context.Context, table string, id int64, fields map[string]any) error {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["Id"] = id
	return c.do(ctx, http.MethodPatch, c.recordsURL(table), body, nil)
}

// Delete removes the record identified by id.
func (c *Client) Delete(ctx context.Context, table string, id int64) error {
	return c.do(ctx, http.MethodDelete, c.recordsURL(table), map[string]any{"Id": id}, nil)
}

func (c *Client) recordsURL(table string) string {
	return c.baseURL + "/api/v2/tables/" + url.PathEscape(table) + "/records"
}

func (c *Client) do(ctx context.Context, method, u string, body any, dest any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("xc-token", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("nocodb %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"method": method,
				"status": resp.StatusCode,
				"body":   string(snippet),
			}).Warn("nocodb request failed")
		}
		return fmt.Errorf("nocodb %s: unexpected status %d", method, resp.StatusCode)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("nocodb decode: %w", err)
	}
	return nil
}
