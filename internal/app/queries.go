package app

import (
	"academy_site/internal/catalog"
	"academy_site/internal/domain"
	"academy_site/internal/marquee"
)

// ReviewService answers read queries over the compiled-in review catalog.
type ReviewService struct {
	reviews   []domain.Review
	platforms []domain.PlatformStat
	speed     marquee.SpeedPolicy
}

func NewReviewService() *ReviewService {
	return NewReviewServiceFrom(catalog.All(), catalog.Platforms())
}

// NewReviewServiceFrom builds a service over explicit data (tests, previews).
func NewReviewServiceFrom(reviews []domain.Review, platforms []domain.PlatformStat) *ReviewService {
	return &ReviewService{reviews: reviews, platforms: platforms, speed: marquee.DefaultSpeedPolicy}
}

func (s *ReviewService) Reviews(src domain.Source) []domain.Review {
	return catalog.Filter(s.reviews, src)
}

func (s *ReviewService) Platforms() []domain.PlatformStat {
	out := make([]domain.PlatformStat, len(s.platforms))
	copy(out, s.platforms)
	return out
}

// MarqueeView is the initial state a browser needs to start the carousel.
type MarqueeView struct {
	Source    domain.Source        `json:"source"`
	Platform  *domain.PlatformStat `json:"platform,omitempty"`
	Viewport  float64              `json:"viewport"`
	Speed     float64              `json:"speed"`
	Layout    marquee.Layout       `json:"layout"`
	HalfWidth float64              `json:"halfWidth"`
	Items     []domain.Review      `json:"items"`
}

// Marquee returns the doubled track for src as laid out at viewport px.
func (s *ReviewService) Marquee(src domain.Source, viewport float64) MarqueeView {
	m := marquee.New(s.reviews,
		marquee.WithSpeedPolicy(s.speed),
		marquee.WithViewport(viewport),
	)
	m.SelectTab(src)
	v := MarqueeView{
		Source:    src,
		Viewport:  viewport,
		Speed:     m.Speed(),
		Layout:    m.Layout(),
		HalfWidth: m.HalfWidth(),
		Items:     m.Items(),
	}
	for _, p := range s.platforms {
		if p.Source == src {
			p := p
			v.Platform = &p
			break
		}
	}
	return v
}
