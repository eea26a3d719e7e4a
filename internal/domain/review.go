package domain

import (
	"fmt"
	"strings"
)

// Source is the platform a review was collected from.
type Source string

const (
	Google   Source = "Google"
	Sulekha  Source = "Sulekha"
	Justdial Source = "Justdial"
)

// DefaultSource is the tab selected when the reviews section mounts.
const DefaultSource = Google

// Sources returns the review platforms in tab order.
func Sources() []Source { return []Source{Google, Sulekha, Justdial} }

// ParseSource matches s case-insensitively against the known platforms.
func ParseSource(s string) (Source, error) {
	for _, src := range Sources() {
		if strings.EqualFold(strings.TrimSpace(s), string(src)) {
			return src, nil
		}
	}
	return "", fmt.Errorf("%w: unknown review source %q", ErrInvalidInput, s)
}

type Review struct {
	Name   string `json:"name" yaml:"name"`
	Date   string `json:"date" yaml:"date"`
	Source Source `json:"source" yaml:"source"`
	Text   string `json:"text" yaml:"text"`
	City   string `json:"city,omitempty" yaml:"city"`
	Logo   string `json:"logo" yaml:"logo"`
}

// PlatformStat is the summary card shown above the marquee for one source.
type PlatformStat struct {
	Source    Source `json:"source" yaml:"source"`
	Title     string `json:"title" yaml:"title"`
	StatLabel string `json:"statLabel" yaml:"statLabel"`
	StatValue string `json:"statValue" yaml:"statValue"`
	Overall   string `json:"overall" yaml:"overall"`
	Logo      string `json:"logo" yaml:"logo"`
}
