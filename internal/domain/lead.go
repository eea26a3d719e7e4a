package domain

import (
	"sort"
	"strings"
	"time"
)

// LeadType discriminates which form produced a lead. Empty is allowed.
type LeadType string

const (
	LeadContact  LeadType = "contact"
	LeadBrochure LeadType = "brochure"
)

type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadDelivered LeadStatus = "delivered"
	LeadFailed    LeadStatus = "failed"
)

// Lead is the body accepted by POST /api/contact.
type Lead struct {
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Type     LeadType `json:"type,omitempty"`
	Source   string   `json:"source,omitempty"`
	Interest string   `json:"interest,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Normalized trims surrounding whitespace and lower-cases the email.
func (l Lead) Normalized() Lead {
	l.FullName = strings.TrimSpace(l.FullName)
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	l.Phone = strings.TrimSpace(l.Phone)
	l.Type = LeadType(strings.ToLower(strings.TrimSpace(string(l.Type))))
	l.Source = strings.TrimSpace(l.Source)
	l.Interest = strings.TrimSpace(l.Interest)
	l.Message = strings.TrimSpace(l.Message)
	return l
}

// LeadRecord is a stored lead in the outbox.
type LeadRecord struct {
	ID          int64
	Lead        Lead
	RemoteIP    string
	UserAgent   string
	Status      LeadStatus
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// FieldErrors maps a form field (JSON name) to a user-facing message.
type FieldErrors map[string]string

// Fields returns the failing field names in stable order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
