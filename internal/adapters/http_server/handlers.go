package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"academy_site/internal/app"
	"academy_site/internal/domain"
	"academy_site/internal/web"
)

const (
	maxContactBody  = 64 << 10
	defaultViewport = 1280
	maxViewport     = 10000
)

type Handlers struct {
	Reviews *app.ReviewService
	Contact *app.ContactService
	Limiter *ClientLimiter
}

type problem struct {
	Type   string             `json:"type"`
	Title  string             `json:"title"`
	Status int                `json:"status"`
	Detail string             `json:"detail,omitempty"`
	Errors domain.FieldErrors `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/reviews", h.listReviews)
		r.Get("/platforms", h.listPlatforms)
		r.Get("/marquee", h.getMarquee)
		if h.Limiter != nil {
			r.With(RateLimit(h.Limiter)).Post("/contact", h.submitContact)
		} else {
			r.Post("/contact", h.submitContact)
		}
	})
	s.mux.Get("/sections/reviews", h.reviewsSection)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCachedJSON answers 304 when the client already holds this version.
func writeCachedJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

func parseSource(r *http.Request) (domain.Source, error) {
	v := r.URL.Query().Get("source")
	if v == "" {
		return domain.DefaultSource, nil
	}
	return domain.ParseSource(v)
}

func parseViewport(r *http.Request) (float64, error) {
	v := r.URL.Query().Get("viewport")
	if v == "" {
		return defaultViewport, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f > maxViewport {
		return 0, errors.New("viewport must be a width in pixels between 1 and 10000")
	}
	return f, nil
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	src, err := parseSource(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid source", "source must be one of Google, Sulekha, Justdial")
		return
	}
	writeCachedJSON(w, r, struct {
		Source domain.Source   `json:"source"`
		Items  []domain.Review `json:"items"`
	}{src, h.Reviews.Reviews(src)})
}

func (h *Handlers) listPlatforms(w http.ResponseWriter, r *http.Request) {
	writeCachedJSON(w, r, struct {
		Items []domain.PlatformStat `json:"items"`
	}{h.Reviews.Platforms()})
}

func (h *Handlers) getMarquee(w http.ResponseWriter, r *http.Request) {
	src, err := parseSource(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid source", "source must be one of Google, Sulekha, Justdial")
		return
	}
	vp, err := parseViewport(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid viewport", err.Error())
		return
	}
	writeCachedJSON(w, r, h.Reviews.Marquee(src, vp))
}

func (h *Handlers) reviewsSection(w http.ResponseWriter, r *http.Request) {
	src, err := parseSource(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid source", "source must be one of Google, Sulekha, Justdial")
		return
	}
	vp, err := parseViewport(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid viewport", err.Error())
		return
	}
	node := web.ReviewsSection(h.Reviews.Platforms(), h.Reviews.Marquee(src, vp))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := node.Render(w); err != nil {
		log.Error().Err(err).Msg("failed to render reviews section")
	}
}

func (h *Handlers) submitContact(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeProblem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", "send application/json")
		return
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContactBody))
	dec.DisallowUnknownFields()
	var lead domain.Lead
	if err := dec.Decode(&lead); err != nil {
		writeProblem(w, http.StatusBadRequest, "Malformed body", "body must be a JSON lead object")
		return
	}

	res, err := h.Contact.Submit(r.Context(), lead, app.SubmitMeta{RemoteIP: remoteIP(r), UserAgent: r.UserAgent()})
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblemBody(w, problem{
			Type:   "about:blank",
			Title:  "Invalid lead",
			Status: http.StatusUnprocessableEntity,
			Errors: verr.Fields,
		})
		return
	case errors.Is(err, app.ErrSubmissionInFlight):
		w.Header().Set("Retry-After", "2")
		writeProblem(w, http.StatusConflict, "Submission in progress", "an identical request is being saved, please retry shortly")
		return
	case err != nil:
		log.Error().Err(err).Msg("contact submission failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not save your request, please try again")
		return
	}

	status := "received"
	if res.Duplicate {
		status = "duplicate"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]any{"id": res.ID, "status": status}); err != nil {
		log.Error().Err(err).Msg("failed to write contact response")
	}
}
