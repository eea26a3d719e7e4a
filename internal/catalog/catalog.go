// Package catalog holds the compiled-in review data shown in the reviews
// marquee and the per-platform summary cards.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"academy_site/internal/domain"
)

//go:embed reviews.yaml
var raw []byte

type document struct {
	Platforms []domain.PlatformStat `yaml:"platforms"`
	Reviews   []domain.Review       `yaml:"reviews"`
}

var doc = mustParse(raw)

func mustParse(b []byte) document {
	d, err := parse(b)
	if err != nil {
		panic("catalog: " + err.Error())
	}
	return d
}

func parse(b []byte) (document, error) {
	var d document
	if err := yaml.Unmarshal(b, &d); err != nil {
		return document{}, err
	}
	known := map[domain.Source]bool{}
	for _, s := range domain.Sources() {
		known[s] = true
	}
	seen := map[domain.Source]bool{}
	for _, p := range d.Platforms {
		if !known[p.Source] {
			return document{}, fmt.Errorf("platform %q has unknown source", p.Title)
		}
		seen[p.Source] = true
	}
	for s := range known {
		if !seen[s] {
			return document{}, fmt.Errorf("no platform stat for %s", s)
		}
	}
	for i, r := range d.Reviews {
		if !known[r.Source] {
			return document{}, fmt.Errorf("review %d (%s) has unknown source %q", i, r.Name, r.Source)
		}
	}
	return d, nil
}

// All returns every review in catalog order. The slice is a copy.
func All() []domain.Review {
	out := make([]domain.Review, len(doc.Reviews))
	copy(out, doc.Reviews)
	return out
}

// Platforms returns one stat per source, in tab order.
func Platforms() []domain.PlatformStat {
	out := make([]domain.PlatformStat, 0, len(doc.Platforms))
	for _, s := range domain.Sources() {
		if p, ok := Platform(s); ok {
			out = append(out, p)
		}
	}
	return out
}

func Platform(src domain.Source) (domain.PlatformStat, bool) {
	for _, p := range doc.Platforms {
		if p.Source == src {
			return p, true
		}
	}
	return domain.PlatformStat{}, false
}

// Filter returns the reviews whose source is src, preserving their order.
func Filter(reviews []domain.Review, src domain.Source) []domain.Review {
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Source == src {
			out = append(out, r)
		}
	}
	return out
}
