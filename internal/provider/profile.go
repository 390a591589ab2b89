package provider

import (
	"fmt"
	"net/url"
	"strings"

	"lexgate/internal/extract"
	"lexgate/internal/types"
)

// Profile is everything provider-specific. The Engine is the same for every source;
// only these selectors and URLs change when a provider redesigns its pages.
type Profile struct {
	Source types.Source
	Name   string
	Origin string
	// SearchPath is appended to Origin; %s receives the query-escaped search terms.
	SearchPath string
	// SignInFragments are matched against the host and path of the current address.
	SignInFragments []string

	// Login selectors, each list in priority order.
	UsernameSelectors []string
	SecretSelectors   []string
	SubmitSelectors   []string
	// ContinueSelectors confirm a "session already active elsewhere" interstitial.
	ContinueSelectors []string

	// ResultMarkers indicate the results list (or an explicit empty state) rendered.
	ResultMarkers []string

	Rules extract.Rules
}

// SearchURL builds the search destination for query.
func (p Profile) SearchURL(query string) string {
	return strings.TrimRight(p.Origin, "/") + fmt.Sprintf(p.SearchPath, url.QueryEscape(query))
}

// IsSignIn reports whether addr is one of the provider's sign-in pages. Only host and
// path are inspected so that search terms like "login" never count.
func (p Profile) IsSignIn(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	target := strings.ToLower(u.Host + u.Path)
	for _, frag := range p.SignInFragments {
		if strings.Contains(target, strings.ToLower(frag)) {
			return true
		}
	}
	return false
}

var (
	westlawOrigin      = "https://1.next.westlaw.com"
	lexisOrigin        = "https://advance.lexis.com"
	law360Origin       = "https://www.law360.com"
	bloomberglawOrigin = "https://www.bloomberglaw.com"
)

// Westlaw is the Thomson Reuters case-law service.
var Westlaw = Profile{
	Source:          types.SourceWestlaw,
	Name:            "Westlaw",
	Origin:          westlawOrigin,
	SearchPath:      "/Search/Results.html?query=%s&jurisdiction=ALLCASES&contentType=CASE",
	SignInFragments: []string{"signon.thomsonreuters.com", "/signon", "/login"},
	UsernameSelectors: []string{
		"#Username", "input[name='Username']", "input[type='email']", "input[name='username']",
	},
	SecretSelectors: []string{
		"#Password", "input[name='Password']", "input[type='password']",
	},
	SubmitSelectors: []string{
		"#SignIn", "button[type='submit']", "input[type='submit']", "#co_submitButton",
	},
	ContinueSelectors: []string{"#co_clearSessionButton", "button[name='continue']"},
	ResultMarkers: []string{
		".co_searchResult_list", "#cobalt_search_case_results", "ol.co_searchResult", ".co_searchResults_noResults",
	},
	Rules: extract.Rules{
		Source:           types.SourceWestlaw,
		Origin:           westlawOrigin,
		LinkSelectors:    []string{"a.co_searchResultTitle", ".co_searchResult_list h3 a", "a[href*='/Document/']"},
		ResultSelector:   "li.co_searchResult, .co_searchResult_list > li, [role='listitem'], .search-result",
		SnippetSelectors: []string{".co_searchResults_summary", ".co_snippet", ".snippet"},
		CourtSelectors:   []string{".co_searchResults_citation .co_court", ".co_court"},
	},
}

// Lexis is the LexisNexis case-law service.
var Lexis = Profile{
	Source:          types.SourceLexis,
	Name:            "Lexis",
	Origin:          lexisOrigin,
	SearchPath:      "/search/?pdsearchterms=%s&pdsearchtype=SearchBox&pdtypeofsearch=searchboxclick&pdsf=&pdquerytemplateid=&ecomp=xbx9k",
	SignInFragments: []string{"signin.lexisnexis.com", "/signin", "/login"},
	UsernameSelectors: []string{
		"#userid", "input[name='userid']", "input[type='email']", "input[name='username']",
	},
	SecretSelectors: []string{
		"#password", "input[name='password']", "input[type='password']",
	},
	SubmitSelectors: []string{
		"#signInSbmtBtn", "#next", "button[type='submit']", "input[type='submit']",
	},
	ContinueSelectors: []string{"#btnContinue", "button[data-action='continue']"},
	ResultMarkers: []string{
		"#results-list", "ol.nexisresults", ".search-results-list", ".noResults",
	},
	Rules: extract.Rules{
		Source:           types.SourceLexis,
		Origin:           lexisOrigin,
		LinkSelectors:    []string{"a.titleLink", "h2.doc-title a", "a[data-docfullpath]"},
		ResultSelector:   "li.usview, .result-item, [role='listitem'], .search-result",
		SnippetSelectors: []string{".overview", ".hit-context", ".snippet"},
		CourtSelectors:   []string{".metadata .court", ".court"},
	},
}

// Law360 is the legal news service. Its "court" is usually absent from results.
var Law360 = Profile{
	Source:          types.SourceLaw360,
	Name:            "Law360",
	Origin:          law360Origin,
	SearchPath:      "/search?q=%s",
	SignInFragments: []string{"/account/login", "/signin", "/login"},
	UsernameSelectors: []string{
		"#email", "input[name='email']", "input[type='email']",
	},
	SecretSelectors: []string{
		"#password", "input[name='password']", "input[type='password']",
	},
	SubmitSelectors: []string{
		"#login-button", "button[type='submit']", "input[type='submit']",
	},
	ContinueSelectors: []string{"#continue-session", "button.continue"},
	ResultMarkers: []string{
		".search-results", "#search-results", ".no-results",
	},
	Rules: extract.Rules{
		Source:           types.SourceLaw360,
		Origin:           law360Origin,
		LinkSelectors:    []string{".search-results h3 a", "a.article-title", "a[href*='/articles/']"},
		ResultSelector:   ".search-result, li.result, article, [role='listitem']",
		SnippetSelectors: []string{".summary", ".article-summary", ".snippet"},
	},
}

// BloombergLaw is the combined case law and company research service.
var BloombergLaw = Profile{
	Source:          types.SourceBloombergLaw,
	Name:            "Bloomberg Law",
	Origin:          bloomberglawOrigin,
	SearchPath:      "/search/results?query=%s&contentType=court_opinions",
	SignInFragments: []string{"/signin", "/login", "login.bloomberglaw.com"},
	UsernameSelectors: []string{
		"#username", "input[name='username']", "input[type='email']", "input[name='email']",
	},
	SecretSelectors: []string{
		"#password", "input[name='password']", "input[type='password']",
	},
	SubmitSelectors: []string{
		"#btnSignIn", "button[type='submit']", "input[type='submit']",
	},
	ContinueSelectors: []string{"#btnContinueSession", "button[data-action='continue']"},
	ResultMarkers: []string{
		".search-results-list", "#resultsList", ".result-row", ".no-search-results",
	},
	Rules: extract.Rules{
		Source:           types.SourceBloombergLaw,
		Origin:           bloomberglawOrigin,
		LinkSelectors:    []string{"a.result-title", ".result-row h3 a", "a[href*='/document/']"},
		ResultSelector:   ".result-row, .search-result, [role='listitem']",
		SnippetSelectors: []string{".result-snippet", ".snippet"},
		CourtSelectors:   []string{".result-court", ".court"},
	},
}

// Profiles lists the built-in profiles in source order.
var Profiles = []Profile{Westlaw, Lexis, Law360, BloombergLaw}

// DisplayName returns the human name for source, or the key itself when unknown.
func DisplayName(source types.Source) string {
	for _, p := range Profiles {
		if p.Source == source {
			return p.Name
		}
	}
	return string(source)
}
