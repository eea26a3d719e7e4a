package httpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	server "academy_site/internal/adapters/http_server"
	redisad "academy_site/internal/adapters/redis"
	"academy_site/internal/app"
	"academy_site/internal/domain"
	"academy_site/internal/leadform"
)

type memRepo struct {
	mu    sync.Mutex
	leads []domain.Lead
	// onInsert runs once, before the first insert is recorded.
	onInsert func()
}

func (m *memRepo) InsertLead(ctx context.Context, l domain.Lead, ip, ua string) (int64, error) {
	if h := m.onInsert; h != nil {
		m.onInsert = nil
		h()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = append(m.leads, l)
	return int64(len(m.leads)), nil
}
func (m *memRepo) MarkDelivered(ctx context.Context, id int64) error { return nil }
func (m *memRepo) MarkFailed(ctx context.Context, id int64, reason string, permanent bool) error {
	return nil
}
func (m *memRepo) GetLead(ctx context.Context, id int64) (domain.LeadRecord, error) {
	return domain.LeadRecord{}, domain.ErrNotFound
}
func (m *memRepo) ListPending(ctx context.Context, limit, maxAttempts int) ([]domain.LeadRecord, error) {
	return nil, nil
}

func newTestServer(t *testing.T, limiter *server.ClientLimiter, opts ...server.Option) (*httptest.Server, *memRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	repo := &memRepo{}

	srv := server.New(opts...)
	srv.MountHandlers(&server.Handlers{
		Reviews: app.NewReviewService(),
		Contact: app.NewContactService(repo, cache, 10*time.Minute, leadform.DefaultOptions),
		Limiter: limiter,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, repo
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestContact_Accepted(t *testing.T) {
	ts, repo := newTestServer(t, nil)
	res := postJSON(t, ts.URL+"/api/contact",
		`{"fullName":"Shital Sawant","email":"shital@example.com","phone":"+919822012345","type":"contact","interest":"Software Testing"}`)
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d", res.StatusCode)
	}
	var body struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != 1 || body.Status != "received" || len(repo.leads) != 1 {
		t.Fatalf("unexpected: %+v leads=%d", body, len(repo.leads))
	}

	again := postJSON(t, ts.URL+"/api/contact",
		`{"fullName":"Shital Sawant","email":"shital@example.com","phone":"+919822012345","type":"contact"}`)
	_ = json.NewDecoder(again.Body).Decode(&body)
	if again.StatusCode != http.StatusAccepted || body.Status != "duplicate" || body.ID != 1 {
		t.Fatalf("expected duplicate of lead 1, got %d %+v", again.StatusCode, body)
	}
	if len(repo.leads) != 1 {
		t.Fatalf("duplicate stored")
	}
}

func TestContact_IdenticalWhileStoringConflicts(t *testing.T) {
	ts, repo := newTestServer(t, nil)
	body := `{"fullName":"Shital Sawant","email":"shital@example.com","phone":"+919822012345","type":"contact"}`
	var inner *http.Response
	repo.onInsert = func() { inner = postJSON(t, ts.URL+"/api/contact", body) }

	if res := postJSON(t, ts.URL+"/api/contact", body); res.StatusCode != http.StatusAccepted {
		t.Fatalf("first submission: status %d", res.StatusCode)
	}
	if inner == nil || inner.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for the identical submission in flight, got %+v", inner)
	}
	if inner.Header.Get("Retry-After") == "" || inner.Header.Get("Content-Type") != "application/problem+json" {
		t.Fatalf("conflict headers: %v", inner.Header)
	}
	if len(repo.leads) != 1 {
		t.Fatalf("expected one stored lead, got %d", len(repo.leads))
	}
}

func TestContact_ValidationErrors(t *testing.T) {
	ts, repo := newTestServer(t, nil)
	res := postJSON(t, ts.URL+"/api/contact", `{"fullName":"Al","email":"bad","phone":"1111111111"}`)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
	var p struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, f := range []string{"fullName", "email", "phone"} {
		if p.Errors[f] == "" {
			t.Fatalf("missing error for %s: %v", f, p.Errors)
		}
	}
	if len(repo.leads) != 0 {
		t.Fatalf("invalid lead stored")
	}
}

func TestContact_MalformedBody(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	for _, body := range []string{`not json`, `{"fullName":"Aarya","unknown":1}`} {
		if res := postJSON(t, ts.URL+"/api/contact", body); res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d", body, res.StatusCode)
		}
	}
}

func TestContact_RateLimited(t *testing.T) {
	ts, _ := newTestServer(t, server.NewClientLimiter(0.001, 1, time.Minute))
	first := postJSON(t, ts.URL+"/api/contact", `{"fullName":"Al"}`)
	if first.StatusCode == http.StatusTooManyRequests {
		t.Fatalf("first request limited")
	}
	second := postJSON(t, ts.URL+"/api/contact", `{"fullName":"Al"}`)
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.StatusCode)
	}
}

func postWithXFF(t *testing.T, url, xff string) int {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(`{"fullName":"Al"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", xff)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	res.Body.Close()
	return res.StatusCode
}

func TestContact_RateLimitIgnoresUntrustedForwardedFor(t *testing.T) {
	ts, _ := newTestServer(t, server.NewClientLimiter(0.0001, 1, time.Minute))
	var got []int
	for i := 0; i < 5; i++ {
		got = append(got, postWithXFF(t, ts.URL+"/api/contact", fmt.Sprintf("203.0.113.%d", i+1)))
	}
	for i, code := range got[1:] {
		if code != http.StatusTooManyRequests {
			t.Fatalf("request %d with a new X-Forwarded-For escaped the limit: %v", i+2, got)
		}
	}
}

func TestContact_RateLimitHonorsTrustedProxy(t *testing.T) {
	tp, err := server.ParseTrustedProxies("127.0.0.1, ::1")
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	ts, _ := newTestServer(t, server.NewClientLimiter(0.0001, 1, time.Minute), server.WithTrustedProxies(tp))
	for i := 0; i < 3; i++ {
		if code := postWithXFF(t, ts.URL+"/api/contact", fmt.Sprintf("203.0.113.%d", i+1)); code == http.StatusTooManyRequests {
			t.Fatalf("distinct clients behind a trusted proxy share one bucket")
		}
	}
	if code := postWithXFF(t, ts.URL+"/api/contact", "203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat client behind a trusted proxy should be limited, got %d", code)
	}
}

func TestTrustedProxies_ClientIP(t *testing.T) {
	tp, err := server.ParseTrustedProxies("10.0.0.0/8,192.0.2.7")
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	cases := []struct {
		name, remote, xff, realIP, want string
	}{
		{"untrusted peer", "198.51.100.9:5000", "203.0.113.1", "", "198.51.100.9"},
		{"trusted peer", "10.1.2.3:5000", "203.0.113.1", "", "203.0.113.1"},
		{"skips trusted hops", "10.1.2.3:5000", "203.0.113.1, 198.51.100.2, 192.0.2.7", "", "198.51.100.2"},
		{"all hops trusted", "10.1.2.3:5000", "10.9.9.9, 10.8.8.8", "", "10.9.9.9"},
		{"real ip fallback", "192.0.2.7:80", "", "203.0.113.5", "203.0.113.5"},
		{"garbage header", "10.1.2.3:5000", "not-an-ip", "", "10.1.2.3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = c.remote
			if c.xff != "" {
				r.Header.Set("X-Forwarded-For", c.xff)
			}
			if c.realIP != "" {
				r.Header.Set("X-Real-IP", c.realIP)
			}
			if got := tp.ClientIP(r); got != c.want {
				t.Fatalf("want %s, got %s", c.want, got)
			}
		})
	}

	if _, err := server.ParseTrustedProxies("10.0.0.0/33"); err == nil {
		t.Fatalf("expected error for bad CIDR")
	}
}

func TestReviews_SourceFilterAndETag(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	res, err := http.Get(ts.URL + "/api/reviews?source=sulekha")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var body struct {
		Source string          `json:"source"`
		Items  []domain.Review `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Source != "Sulekha" || len(body.Items) != 4 || body.Items[0].Name != "Aarya" {
		t.Fatalf("unexpected body: %+v", body)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/reviews?source=sulekha", nil)
	req.Header.Set("If-None-Match", res.Header.Get("ETag"))
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res2.StatusCode)
	}
}

func TestReviews_UnknownSource(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	res, err := http.Get(ts.URL + "/api/reviews?source=yelp")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
}

func TestMarquee_Endpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	res, err := http.Get(ts.URL + "/api/marquee?source=Google&viewport=800")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var v app.MarqueeView
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Speed != 45 || len(v.Items) == 0 || len(v.Items)%2 != 0 {
		t.Fatalf("unexpected marquee view: speed=%v items=%d", v.Speed, len(v.Items))
	}

	bad, err := http.Get(ts.URL + "/api/marquee?viewport=-3")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative viewport, got %d", bad.StatusCode)
	}
}

func TestReviewsSection_HTML(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	res, err := http.Get(ts.URL + "/sections/reviews?source=Justdial")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if !strings.HasPrefix(res.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("content type %q", res.Header.Get("Content-Type"))
	}
}

func TestClientLimiter_PerIP(t *testing.T) {
	cl := server.NewClientLimiter(0.001, 1, time.Minute)
	if !cl.Allow("10.0.0.1") || !cl.Allow("10.0.0.2") {
		t.Fatalf("each IP gets its own bucket")
	}
	if cl.Allow("10.0.0.1") {
		t.Fatalf("second request from same IP should be limited")
	}
}
