package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"academy_site/internal/adapters/observability"
	"academy_site/internal/domain"
	"academy_site/internal/leadform"
)

// ValidationError carries per-field messages for a rejected lead.
type ValidationError struct{ Fields domain.FieldErrors }

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields.Fields() {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "invalid lead: " + strings.Join(parts, "; ")
}

// ErrSubmissionInFlight means an identical lead is being stored right now.
// The caller should retry shortly.
var ErrSubmissionInFlight = errors.New("identical submission in progress")

// claimTTL bounds how long an unfinished dedup claim blocks identical
// submissions, e.g. after a crash between claim and insert.
const claimTTL = 30 * time.Second

type SubmitMeta struct {
	RemoteIP  string
	UserAgent string
}

type SubmitResult struct {
	ID        int64 `json:"id"`
	Duplicate bool  `json:"duplicate"`
}

type ContactService struct {
	repo     domain.LeadRepository
	cache    domain.Cache
	dedupTTL time.Duration
	opts     leadform.Options
}

// NewContactService wires the lead outbox and the dedup cache. cache may be
// nil, which disables duplicate suppression.
func NewContactService(r domain.LeadRepository, c domain.Cache, dedupTTL time.Duration, opts leadform.Options) *ContactService {
	return &ContactService{repo: r, cache: c, dedupTTL: dedupTTL, opts: opts}
}

// Submit validates l and stores it in the lead outbox. The same person
// submitting the same form again inside the dedup window gets the original
// lead id back and nothing new is stored. While the first submission is
// still being stored, an identical one gets ErrSubmissionInFlight.
func (s *ContactService) Submit(ctx context.Context, l domain.Lead, meta SubmitMeta) (SubmitResult, error) {
	l = l.Normalized()
	if errs := leadform.Validate(l, s.opts); len(errs) > 0 {
		observability.ObserveLead(string(l.Type), "invalid")
		return SubmitResult{}, &ValidationError{Fields: errs}
	}
	if l.Phone != "" {
		l.Phone = leadform.FormatPhone(l.Phone, s.opts.Region)
	}

	key := dedupKey(l)
	claimed := false
	if s.cache != nil && s.dedupTTL > 0 {
		ok, err := s.cache.SetNX(ctx, key, int64(0), min(claimTTL, s.dedupTTL))
		switch {
		case err != nil:
			// dedup is best-effort; a cache outage must not drop leads
			log.Warn().Err(err).Msg("lead dedup unavailable")
		case !ok:
			var id int64
			if _, err := s.cache.Get(ctx, key, &id); err != nil {
				log.Warn().Err(err).Msg("lead dedup lookup failed")
			}
			if id == 0 {
				observability.ObserveLead(string(l.Type), "in_flight")
				return SubmitResult{}, ErrSubmissionInFlight
			}
			observability.ObserveLead(string(l.Type), "duplicate")
			return SubmitResult{ID: id, Duplicate: true}, nil
		default:
			claimed = true
		}
	}

	id, err := s.repo.InsertLead(ctx, l, meta.RemoteIP, meta.UserAgent)
	if err != nil {
		if claimed {
			// release the claim so the visitor can retry
			_ = s.cache.Del(ctx, key)
		}
		observability.ObserveLead(string(l.Type), "error")
		return SubmitResult{}, fmt.Errorf("store lead: %w", err)
	}
	if claimed {
		// the stored id replaces the claim and holds for the full window
		if err := s.cache.Set(ctx, key, id, s.dedupTTL); err != nil {
			log.Warn().Err(err).Int64("lead_id", id).Msg("lead dedup record failed")
		}
	}
	observability.ObserveLead(string(l.Type), "stored")
	return SubmitResult{ID: id}, nil
}

func dedupKey(l domain.Lead) string {
	fields := []string{string(l.Type), l.Email, l.Phone}
	sum := sha1.Sum([]byte(strings.Join(fields, "|")))
	return "lead:dedup:" + hex.EncodeToString(sum[:])
}

// RelayOutcome is what happened to one lead during a relay run.
type RelayOutcome string

const (
	RelayDelivered RelayOutcome = "delivered"
	RelayRejected  RelayOutcome = "rejected"
	RelayRetry     RelayOutcome = "retry"
)

type RelayService struct {
	notifier domain.LeadNotifier
	repo     domain.LeadRepository
}

func NewRelayService(n domain.LeadNotifier, r domain.LeadRepository) *RelayService {
	return &RelayService{notifier: n, repo: r}
}

// DeliverLead forwards rec to the CRM and records the result in the outbox.
// A permanent rejection is a handled outcome, not an error; anything else
// that fails leaves the lead pending and is returned. An unauthorized
// answer is a credentials problem, not a property of the lead, so it does
// not count as a delivery attempt.
func (s *RelayService) DeliverLead(ctx context.Context, rec domain.LeadRecord) (RelayOutcome, error) {
	derr := s.notifier.Deliver(ctx, rec)
	switch {
	case derr == nil:
		if err := s.repo.MarkDelivered(ctx, rec.ID); err != nil {
			// IMPORTANT: surface this; the CRM has the lead but the outbox
			// still says pending, so the next run would send it again
			return RelayRetry, fmt.Errorf("mark lead %d delivered: %w", rec.ID, err)
		}
		observability.ObserveRelay(string(RelayDelivered))
		return RelayDelivered, nil

	case errors.Is(derr, domain.ErrUnauthorized):
		observability.ObserveRelay(string(RelayRetry))
		return RelayRetry, derr

	case errors.Is(derr, domain.ErrRejected):
		if err := s.repo.MarkFailed(ctx, rec.ID, truncate(derr.Error(), 1024), true); err != nil {
			return RelayRejected, err
		}
		observability.ObserveRelay(string(RelayRejected))
		return RelayRejected, nil

	default:
		if ctx.Err() == nil {
			if err := s.repo.MarkFailed(ctx, rec.ID, truncate(derr.Error(), 1024), false); err != nil {
				return RelayRetry, errors.Join(derr, err)
			}
		}
		observability.ObserveRelay(string(RelayRetry))
		return RelayRetry, derr
	}
}

// PendingLeads returns the next batch to relay, oldest first.
func (s *RelayService) PendingLeads(ctx context.Context, limit, maxAttempts int) ([]domain.LeadRecord, error) {
	recs, err := s.repo.ListPending(ctx, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
