package portal

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nulljosh/claimcheck/internal/logger"
)

// Extractor pulls structured text out of one portal section at a time. The
// heuristics are uniform across sections: list items, content-class blocks,
// flattened tables, and keyword context windows, each deduplicated with
// first-occurrence order preserved.
type Extractor struct {
	nav   Navigator
	cfg   *Config
	shots ScreenshotSink

	keywordRes []*regexp.Regexp
}

func NewExtractor(nav Navigator, cfg *Config, shots ScreenshotSink) *Extractor {
	res := make([]*regexp.Regexp, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		res = append(res, regexp.MustCompile(`(?i).{0,150}`+regexp.QuoteMeta(kw)+`.{0,150}`))
	}
	return &Extractor{nav: nav, cfg: cfg, shots: shots, keywordRes: res}
}

// Extract navigates to the section and runs the extraction heuristics.
// Failures, including an expired session, are captured in the result rather
// than returned; a bad section never aborts the run.
func (e *Extractor) Extract(ctx context.Context, sec Section) *SectionResult {
	url, err := e.locate(ctx, sec)
	if err != nil {
		return &SectionResult{Error: err.Error()}
	}

	if err := e.nav.Goto(ctx, url, e.cfg.NavigationTimeout); err != nil {
		return &SectionResult{Error: err.Error()}
	}

	st, err := e.nav.State(ctx)
	if err != nil {
		return &SectionResult{Error: err.Error()}
	}
	if containsAny(st.URL, e.cfg.LoginURLMarkers) {
		logger.Warn("section bounced to login page", "section", sec.Name)
		return &SectionResult{Error: ErrSessionExpired.Error()}
	}

	html, err := e.nav.HTML(ctx)
	if err != nil {
		return &SectionResult{Error: err.Error()}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &SectionResult{Error: err.Error()}
	}

	res := &SectionResult{
		Success:   true,
		PageTitle: st.Title,
		URL:       st.URL,
		AllText:   dedupe(collectText(doc)),
		TableData: dedupe(flattenTables(doc)),
		Keywords:  dedupe(e.keywordWindows(st.BodyText)),
	}
	res.Screenshot = capture(ctx, e.nav, e.shots, sec.Name)

	logger.Debug("section extracted",
		"section", sec.Name,
		"text", len(res.AllText),
		"rows", len(res.TableData),
		"keywords", len(res.Keywords))
	return res
}

// locate resolves the section URL. Sections with a discovery rule are found
// by scanning landing-page anchors for a label match, then probing the
// fallback paths in order for the first page that is not a not-found page.
func (e *Extractor) locate(ctx context.Context, sec Section) (string, error) {
	if len(sec.DiscoverLabels) == 0 {
		return e.cfg.ResolveURL(sec.Path), nil
	}

	landing := e.cfg.ResolveURL(sec.DiscoverFrom)
	if err := e.nav.Goto(ctx, landing, e.cfg.NavigationTimeout); err == nil {
		if html, err := e.nav.HTML(ctx); err == nil {
			if href := findAnchor(html, sec.DiscoverLabels); href != "" {
				logger.Debug("discovered section link", "section", sec.Name, "href", href)
				return e.cfg.ResolveURL(href), nil
			}
		}
	}

	for _, path := range sec.FallbackPaths {
		url := e.cfg.ResolveURL(path)
		if e.probe(ctx, url) {
			logger.Debug("section fallback accepted", "section", sec.Name, "url", url)
			return url, nil
		}
	}
	return e.cfg.ResolveURL(sec.Path), nil
}

// probe reports whether url resolves to a real page rather than the
// portal's not-found page.
func (e *Extractor) probe(ctx context.Context, url string) bool {
	if err := e.nav.Goto(ctx, url, e.cfg.NavigationTimeout); err != nil {
		return false
	}
	st, err := e.nav.State(ctx)
	if err != nil {
		return false
	}
	return !containsAny(st.URL, e.cfg.NotFoundMarkers) &&
		!containsAny(st.Title, e.cfg.NotFoundMarkers)
}

func (e *Extractor) keywordWindows(text string) []string {
	var out []string
	for _, re := range e.keywordRes {
		for _, m := range re.FindAllString(text, -1) {
			if t := clean(m); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// findAnchor returns the href of the first anchor whose text matches one of
// the labels, case-insensitively.
func findAnchor(html string, labels []string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if containsAny(s.Text(), labels) {
			href = s.AttrOr("href", "")
			return false
		}
		return true
	})
	return href
}

// collectText gathers list items longer than 10 characters, skipping menu
// chrome, plus paragraph and content-class blocks longer than 20 characters.
func collectText(doc *goquery.Document) []string {
	var out []string
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		if inMenu(s) {
			return
		}
		if t := clean(s.Text()); len(t) > 10 {
			out = append(out, t)
		}
	})
	doc.Find("p, .content, .message, .notification").Each(func(_ int, s *goquery.Selection) {
		if t := clean(s.Text()); len(t) > 20 {
			out = append(out, t)
		}
	})
	return out
}

func inMenu(s *goquery.Selection) bool {
	if strings.Contains(strings.ToLower(s.AttrOr("class", "")), "menu") {
		return true
	}
	return s.ParentsFiltered(`nav, [class*="menu"]`).Length() > 0
}

// flattenTables renders every table row as a pipe-delimited string in
// source order.
func flattenTables(doc *goquery.Document) []string {
	var out []string
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, clean(cell.Text()))
		})
		if len(cells) > 0 {
			out = append(out, strings.Join(cells, " | "))
		}
	})
	return out
}

// clean collapses runs of whitespace to single spaces and trims the result.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupe removes exact duplicates, keeping first-occurrence order.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
