// Package extract turns provider result pages into ResultRecords.
//
// Extraction is heuristic. Each result anchor is mapped to a container element by an
// ordered list of strategies, and the citation, date, court and snippet are then pulled
// out of that container. Nothing here depends on wall-clock time or randomness, so the
// same markup always yields the same records.
package extract

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"lexgate/internal/logging"
	"lexgate/internal/types"
)

const (
	// MinTitleRunes is the shortest link text accepted as a case title.
	MinTitleRunes = 5

	snippetBudget         = 500
	fallbackSnippetBudget = 300
)

// recordNamespace seeds the name-based record IDs.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://lexgate/records"))

// Rules describe where a provider puts its results.
type Rules struct {
	Source types.Source
	// Origin is the scheme and host used to resolve relative links.
	Origin string
	// LinkSelectors match result title anchors. They are queried as one union so
	// anchors come back in document order.
	LinkSelectors []string
	// ResultSelector matches result-like ancestors (class or role based).
	ResultSelector string
	// SnippetSelectors name dedicated summary elements, in priority order.
	SnippetSelectors []string
	// CourtSelectors name dedicated court elements, in priority order.
	CourtSelectors []string
}

// container is the element judged to wrap one result.
type container struct {
	sel    *goquery.Selection
	budget int
	via    string
}

// strategy locates a container for an anchor, or reports that it cannot.
type strategy struct {
	name   string
	budget int
	match  func(anchor *goquery.Selection, r Rules) *goquery.Selection
}

// strategies run in order; the first that returns a non-empty selection wins.
var strategies = []strategy{
	{
		name:   "result-like",
		budget: snippetBudget,
		match: func(anchor *goquery.Selection, r Rules) *goquery.Selection {
			if r.ResultSelector == "" {
				return nil
			}
			return anchor.ParentsFiltered(r.ResultSelector).First()
		},
	},
	{
		name:   "parent-walk",
		budget: fallbackSnippetBudget,
		match: func(anchor *goquery.Selection, _ Rules) *goquery.Selection {
			c := anchor
			for i := 0; i < 2; i++ {
				p := c.Parent()
				if p.Length() == 0 || goquery.NodeName(p) == "body" {
					break
				}
				c = p
			}
			return c
		},
	},
}

func locate(anchor *goquery.Selection, r Rules) (container, bool) {
	for _, s := range strategies {
		if sel := s.match(anchor, r); sel != nil && sel.Length() > 0 {
			return container{sel: sel, budget: s.budget, via: s.name}, true
		}
	}
	return container{}, false
}

// Extract parses page HTML and returns at most maxResults records in markup order.
// An empty slice is a valid result.
func Extract(page string, r Rules, maxResults int) ([]types.ResultRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}
	return FromDocument(doc, r, maxResults), nil
}

// FromDocument runs extraction over an already parsed document.
func FromDocument(doc *goquery.Document, r Rules, maxResults int) []types.ResultRecord {
	records := make([]types.ResultRecord, 0)
	if maxResults <= 0 || len(r.LinkSelectors) == 0 {
		return records
	}

	base, _ := url.Parse(r.Origin)
	seen := make(map[*html.Node]struct{})
	var skippedShort, skippedDup int

	doc.Find(strings.Join(r.LinkSelectors, ", ")).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(records) >= maxResults {
			return false
		}

		title := collapse(a.Text())
		if utf8.RuneCountInString(title) < MinTitleRunes {
			skippedShort++
			return true
		}
		link, ok := resolveLink(base, a)
		if !ok {
			return true
		}

		c, ok := locate(a, r)
		if !ok {
			return true
		}
		node := c.sel.Get(0)
		if _, dup := seen[node]; dup {
			skippedDup++
			return true
		}
		seen[node] = struct{}{}

		records = append(records, buildRecord(c, r, title, link, len(records)))
		return true
	})

	logging.ExtractDebug("%s: %d records (skipped %d short titles, %d duplicate containers)",
		r.Source, len(records), skippedShort, skippedDup)
	return records
}

func buildRecord(c container, r Rules, title, link string, position int) types.ResultRecord {
	text := collapse(c.sel.Text())

	snippet := firstText(c.sel, r.SnippetSelectors)
	budget := snippetBudget
	if snippet == "" {
		snippet = collapse(strings.Replace(text, title, "", 1))
		budget = c.budget
	}

	court := firstText(c.sel, r.CourtSelectors)
	if court == "" {
		court = FindCourt(text)
	}

	return types.ResultRecord{
		ID:        RecordID(r.Source, link, position),
		Title:     title,
		Citation:  FindCitation(text),
		Court:     court,
		DateFiled: FindDate(text),
		Snippet:   truncate(snippet, budget),
		URL:       link,
		Source:    r.Source,
	}
}

// RecordID derives a stable ID from the record's source, URL and position.
func RecordID(source types.Source, link string, position int) string {
	name := string(source) + "|" + link + "|" + strconv.Itoa(position)
	return uuid.NewSHA1(recordNamespace, []byte(name)).String()
}

func resolveLink(base *url.URL, a *goquery.Selection) (string, bool) {
	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() || base == nil {
		return ref.String(), true
	}
	return base.ResolveReference(ref).String(), true
}

func firstText(scope *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := collapse(scope.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, budget int) string {
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:budget]))
}
