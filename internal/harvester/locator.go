package harvester

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is one comment-like container resolved from the page, with its
// author name (may be empty) and body text (never empty).
type Candidate struct {
	Name string
	Body string
}

// LocatorStrategy pairs a CSS selector with a human-readable description.
// Strategies are tried in priority order; the first one that yields any
// containers wins.
type LocatorStrategy struct {
	Description string
	Selector    string
}

var commentStrategies = []LocatorStrategy{
	{"comment list item", "li.comments-comment-item"},
	{"comment item", "div.comments-comment-item"},
	{"comment main content", "div.comments-comment-item__main-content"},
	{"commentary block", "div.commentary"},
	{"generic comment", ".comment"},
	{"article", "article"},
}

var nameSelectors = []string{
	".comments-post-meta__name-text",
	".comments-comment-meta__description-title",
	".feed-shared-actor__name",
	"a[href*='/in/'] span[aria-hidden='true']",
	"a[href*='/in/']",
	".commenter-name",
}

var bodySelectors = []string{
	".comments-comment-item__main-content",
	".comments-comment-item-content-body",
	".comment-body",
	".feed-shared-update-v2__description",
	"span[dir='ltr']",
}

// ParseSnapshot parses a rendered HTML snapshot for candidate location.
func ParseSnapshot(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// LocateCandidates walks the strategy list in order and resolves the
// containers of the first strategy that matches anything. Candidates whose
// body text is empty after every fallback are skipped; a nil return means
// the caller should fall back to a whole-page scan.
func LocateCandidates(doc *goquery.Document) []Candidate {
	if doc == nil {
		return nil
	}

	for _, strategy := range commentStrategies {
		containers := doc.Find(strategy.Selector)
		if containers.Length() == 0 {
			continue
		}

		var candidates []Candidate
		containers.Each(func(i int, s *goquery.Selection) {
			if cand, ok := resolveCandidate(s); ok {
				candidates = append(candidates, cand)
			}
		})
		return candidates
	}

	return nil
}

// resolveCandidate extracts the author name and body text of one container.
// Both use a first-non-empty sub-locator cascade; the body falls back to the
// container's full text.
func resolveCandidate(s *goquery.Selection) (Candidate, bool) {
	var name string
	for _, sel := range nameSelectors {
		text := strings.TrimSpace(s.Find(sel).First().Text())
		if text != "" && len(text) < 100 {
			name = text
			break
		}
	}

	var body string
	for _, sel := range bodySelectors {
		text := strings.TrimSpace(s.Find(sel).First().Text())
		if text != "" {
			body = text
			break
		}
	}
	if body == "" {
		body = strings.TrimSpace(s.Text())
	}
	if body == "" {
		return Candidate{}, false
	}

	return Candidate{Name: name, Body: body}, true
}

// containsExactText reports whether any span/div/a/button in the snapshot
// carries exactly the given text, case-insensitively.
func containsExactText(doc *goquery.Document, label string) bool {
	if doc == nil {
		return false
	}
	want := strings.ToLower(strings.TrimSpace(label))
	found := false
	doc.Find("span, div, a, button, li").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if strings.ToLower(strings.TrimSpace(s.Text())) == want {
			found = true
			return false
		}
		return true
	})
	return found
}
