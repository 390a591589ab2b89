// Package types provides shared type definitions used across lexgate packages.
// This package exists to break import cycles between the browser, provider and gateway layers.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// SOURCES
// =============================================================================

// Source identifies one external legal research database.
type Source string

const (
	SourceWestlaw      Source = "westlaw"      // case-law vendor
	SourceLexis        Source = "lexis"        // case-law vendor
	SourceLaw360       Source = "law360"       // legal news
	SourceBloombergLaw Source = "bloomberglaw" // combined case and company database
)

// AllSources lists every supported source in a stable order.
var AllSources = []Source{SourceWestlaw, SourceLexis, SourceLaw360, SourceBloombergLaw}

// ParseSource normalizes a caller-supplied source key.
// The boolean is false for keys that do not name a supported source.
func ParseSource(raw string) (Source, bool) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllSources {
		if s == known {
			return s, true
		}
	}
	return s, false
}

func (s Source) String() string {
	return string(s)
}

// =============================================================================
// REQUESTS AND RESULTS
// =============================================================================

// Credentials are the caller's login for one provider. Secret is never logged or persisted.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Secret   string `json:"secret" validate:"required"`
}

// SearchRequest is a single-use search against one provider.
type SearchRequest struct {
	Query       string      `json:"query" validate:"required"`
	Source      Source      `json:"source" validate:"required"`
	Credentials Credentials `json:"credentials" validate:"required"`
	MaxResults  int         `json:"maxResults" validate:"gte=1"`
}

// ResultRecord is one normalized search hit. Only ID, URL and Source are guaranteed non-empty.
type ResultRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Citation  string `json:"citation"`
	Court     string `json:"court"`
	DateFiled string `json:"dateFiled"`
	Snippet   string `json:"snippet"`
	URL       string `json:"url"`
	Source    Source `json:"source"`
}

// =============================================================================
// COOKIES
// =============================================================================

// Cookie is a browser-agnostic snapshot of one authentication cookie.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	HTTPOnly bool      `json:"httpOnly"`
	Secure   bool      `json:"secure"`
	SameSite string    `json:"sameSite,omitempty"`
}

// CloneCookies returns an independent copy of cookies.
func CloneCookies(cookies []Cookie) []Cookie {
	if cookies == nil {
		return nil
	}
	out := make([]Cookie, len(cookies))
	copy(out, cookies)
	return out
}
