// Package contactapi is a Go client for the site's POST /api/contact route.
package contactapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"academy_site/internal/adapters/observability"
	"academy_site/internal/domain"
	"academy_site/internal/leadform"
)

type Client struct {
	base string
	hc   *http.Client
	opts leadform.Options
}

func New(baseURL string, opts leadform.Options) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 15 * time.Second},
		opts: opts,
	}
}

// ValidationError lists the fields that failed, either locally or as
// reported by the server in a 422 response.
type ValidationError struct{ Fields domain.FieldErrors }

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields.Fields() {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "invalid enquiry: " + strings.Join(parts, "; ")
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Status int
	Title  string
	Detail string
}

func (e *StatusError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("contact api: status %d: %s", e.Status, msg)
}

type Receipt struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type problem struct {
	Title  string            `json:"title"`
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors"`
}

// Submit validates l with the same rules as the server and only sends it
// when it passes.
func (c *Client) Submit(ctx context.Context, l domain.Lead) (Receipt, error) {
	l = l.Normalized()
	if errs := leadform.Validate(l, c.opts); len(errs) > 0 {
		return Receipt{}, &ValidationError{Fields: errs}
	}

	body, err := json.Marshal(l)
	if err != nil {
		return Receipt{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/contact", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("contactapi", "/api/contact", 0, time.Since(start))
		return Receipt{}, fmt.Errorf("contact api: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("contactapi", "/api/contact", resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var r Receipt
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return Receipt{}, fmt.Errorf("contact api: decode receipt: %w", err)
		}
		return r, nil
	}

	var p problem
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Debug().Err(err).Int("status", resp.StatusCode).Msg("non-JSON error body")
		p.Detail = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode == http.StatusUnprocessableEntity && len(p.Errors) > 0 {
		return Receipt{}, &ValidationError{Fields: domain.FieldErrors(p.Errors)}
	}
	return Receipt{}, &StatusError{Status: resp.StatusCode, Title: p.Title, Detail: p.Detail}
}
