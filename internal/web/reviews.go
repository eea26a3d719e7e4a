// Package web renders the server-side HTML for the reviews section. The
// browser script only animates what is rendered here; speed and loop width
// travel as data attributes.
package web

import (
	"strconv"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"academy_site/internal/app"
	"academy_site/internal/domain"
)

func ReviewsSection(platforms []domain.PlatformStat, v app.MarqueeView) g.Node {
	var summary g.Node
	if v.Platform != nil {
		summary = stat(*v.Platform)
	}
	return Section(
		Class("reviews"),
		ID("reviews"),
		H2(Class("reviews__title"), g.Text("What our students say")),
		Div(
			Class("reviews__tabs"),
			g.Attr("role", "tablist"),
			g.Map(platforms, func(p domain.PlatformStat) g.Node { return tab(p, p.Source == v.Source) }),
		),
		summary,
		Div(
			Class("reviews__viewport"),
			g.Attr("data-marquee", ""),
			g.Attr("data-source", string(v.Source)),
			g.Attr("data-speed", fmtFloat(v.Speed)),
			g.Attr("data-half-width", fmtFloat(v.HalfWidth)),
			Div(
				Class("reviews__track"),
				g.Map(indexed(v.Items), func(it indexedReview) g.Node {
					// second copy is decorative; screen readers see each review once
					return card(it.Review, it.Index >= len(v.Items)/2)
				}),
			),
		),
	)
}

func tab(p domain.PlatformStat, active bool) g.Node {
	cls := "reviews__tab"
	if active {
		cls += " reviews__tab--active"
	}
	return A(
		Class(cls),
		Href("?source="+string(p.Source)+"#reviews"),
		g.Attr("role", "tab"),
		g.Attr("aria-selected", strconv.FormatBool(active)),
		Img(Src(p.Logo), Alt(p.Title), g.Attr("loading", "lazy")),
		Span(g.Text(p.Title)),
	)
}

func stat(p domain.PlatformStat) g.Node {
	return Div(
		Class("reviews__stat"),
		Span(Class("reviews__stat-label"), g.Text(p.StatLabel)),
		Strong(Class("reviews__stat-value"), g.Text(p.StatValue)),
		Span(Class("reviews__stat-overall"), g.Text(p.Overall)),
	)
}

func card(r domain.Review, duplicate bool) g.Node {
	return Article(
		Class("review-card"),
		g.If(duplicate, g.Attr("aria-hidden", "true")),
		Div(
			Class("review-card__head"),
			Img(Src(r.Logo), Alt(string(r.Source)), g.Attr("loading", "lazy")),
			Div(
				Strong(Class("review-card__name"), g.Text(r.Name)),
				Span(Class("review-card__date"), g.Text(r.Date)),
				g.If(r.City != "", Span(Class("review-card__city"), g.Text(r.City))),
			),
		),
		P(Class("review-card__text"), g.Text(r.Text)),
	)
}

type indexedReview struct {
	Index  int
	Review domain.Review
}

func indexed(rs []domain.Review) []indexedReview {
	out := make([]indexedReview, len(rs))
	for i, r := range rs {
		out[i] = indexedReview{Index: i, Review: r}
	}
	return out
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
