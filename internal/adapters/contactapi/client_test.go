package contactapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"academy_site/internal/adapters/contactapi"
	"academy_site/internal/domain"
	"academy_site/internal/leadform"
)

func TestSubmit_InvalidLeadSendsNothing(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	c := contactapi.New(ts.URL, leadform.DefaultOptions)
	_, err := c.Submit(context.Background(), domain.Lead{FullName: "Al", Email: "bad", Phone: "1111111111"})
	var verr *contactapi.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Fatalf("expected 3 local field errors, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("invalid lead reached the server")
	}
}

func TestSubmit_Accepted(t *testing.T) {
	var got domain.Lead
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/contact" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":9,"status":"received"}`))
	}))
	defer ts.Close()

	c := contactapi.New(ts.URL+"/", leadform.DefaultOptions)
	rec, err := c.Submit(context.Background(), domain.Lead{
		FullName: " Kiran More ", Email: "Kiran@Example.com", Phone: "+91 98220 12345", Type: domain.LeadContact,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rec.ID != 9 || rec.Status != "received" {
		t.Fatalf("unexpected receipt: %+v", rec)
	}
	if got.FullName != "Kiran More" || got.Email != "kiran@example.com" {
		t.Fatalf("lead not normalized before sending: %+v", got)
	}
}

func TestSubmit_ServerErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name: "problem detail", status: http.StatusTooManyRequests,
			body: `{"title":"Too Many Requests","detail":"slow down"}`,
			check: func(t *testing.T, err error) {
				var se *contactapi.StatusError
				if !errors.As(err, &se) || se.Status != 429 || se.Detail != "slow down" {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name: "plain text", status: http.StatusBadGateway, body: "upstream down",
			check: func(t *testing.T, err error) {
				var se *contactapi.StatusError
				if !errors.As(err, &se) || se.Detail != "upstream down" {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name: "server validation", status: http.StatusUnprocessableEntity,
			body: `{"title":"Invalid lead","errors":{"email":"Enter a valid email address"}}`,
			check: func(t *testing.T, err error) {
				var verr *contactapi.ValidationError
				if !errors.As(err, &verr) || verr.Fields["email"] == "" {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()
			c := contactapi.New(ts.URL, leadform.DefaultOptions)
			_, err := c.Submit(context.Background(), domain.Lead{
				FullName: "Pooja Shinde", Email: "pooja@example.com", Phone: "+91 98220 12345",
			})
			tc.check(t, err)
		})
	}
}
