package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"lexgate/internal/browser"
	"lexgate/internal/types"
)

const sessionCookie = "sid"

// fakeSite simulates one provider: a sign-in form, session cookies and a results page.
type fakeSite struct {
	profile  Profile
	accounts map[string]string
	results  string

	twoStep      bool
	interstitial bool
	// bounces is how many post-login search navigations are sent back to sign-in.
	bounces atomic.Int32
	hang    bool

	mu       sync.Mutex
	sessions map[string]string // cookie value -> username
	issued   int

	logins      atomic.Int32
	formQueries atomic.Int32
	pagesOpened atomic.Int32
	pagesClosed atomic.Int32
}

func newFakeSite(p Profile, results string) *fakeSite {
	return &fakeSite{
		profile:  p,
		accounts: map[string]string{"alice": "pw-alice", "bob": "pw-bob"},
		results:  results,
		sessions: make(map[string]string),
	}
}

func (s *fakeSite) id(selector string) string { return strings.TrimPrefix(selector, "#") }

func (s *fakeSite) userID() string     { return s.id(s.profile.UsernameSelectors[0]) }
func (s *fakeSite) secretID() string   { return s.id(s.profile.SecretSelectors[0]) }
func (s *fakeSite) submitID() string   { return s.id(s.profile.SubmitSelectors[0]) }
func (s *fakeSite) continueID() string { return s.id(s.profile.ContinueSelectors[0]) }

func (s *fakeSite) signInPage(withSecret, withUser bool) string {
	var b strings.Builder
	b.WriteString("<html><body><form>")
	if withUser {
		fmt.Fprintf(&b, `<input id="%s" type="text">`, s.userID())
	}
	if withSecret {
		fmt.Fprintf(&b, `<input id="%s" type="password">`, s.secretID())
	}
	fmt.Fprintf(&b, `<button id="%s">Sign in</button></form></body></html>`, s.submitID())
	return b.String()
}

func (s *fakeSite) interstitialPage() string {
	return fmt.Sprintf(`<html><body><p>Your session is active elsewhere.</p><button id="%s">Continue</button></body></html>`, s.continueID())
}

func (s *fakeSite) issue(username string) types.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	v := fmt.Sprintf("sess-%s-%d", username, s.issued)
	s.sessions[v] = username
	return types.Cookie{Name: sessionCookie, Value: v, Domain: "example", Path: "/"}
}

func (s *fakeSite) owner(value string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.sessions[value]
	return u, ok
}

// fakePages leases fakePages against one site.
type fakePages struct {
	site      *fakeSite
	launchErr error
	mu        sync.Mutex
	pages     []*fakePage
}

type fakeBrowser struct{}

func (fakeBrowser) NewPage(context.Context, browser.PageOptions) (browser.Page, error) {
	return nil, errors.New("use fakePages")
}
func (fakeBrowser) Alive() bool  { return true }
func (fakeBrowser) Close() error { return nil }

func (f *fakePages) AcquireBrowser(context.Context) (browser.Browser, error) {
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	return fakeBrowser{}, nil
}

func (f *fakePages) AcquirePage(context.Context, browser.Browser) (browser.Page, error) {
	p := &fakePage{site: f.site, inputs: make(map[string]string)}
	f.site.pagesOpened.Add(1)
	f.mu.Lock()
	f.pages = append(f.pages, p)
	f.mu.Unlock()
	return p, nil
}

// fakePage is one isolated browsing context with its own cookie jar.
type fakePage struct {
	site *fakeSite

	url       string
	html      string
	doc       *goquery.Document
	jar       []types.Cookie
	inputs    map[string]string
	pending   string
	justIn    bool
	closed    atomic.Bool
	seenOwner []string
}

func (p *fakePage) load(url, html string) {
	p.url = url
	p.html = html
	p.doc, _ = goquery.NewDocumentFromReader(strings.NewReader(html))
	p.inputs = make(map[string]string)
}

func (p *fakePage) sessionOwner() (string, bool) {
	for _, c := range p.jar {
		if c.Name == sessionCookie {
			if u, ok := p.site.owner(c.Value); ok {
				return u, true
			}
		}
	}
	return "", false
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.site.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	owner, ok := p.sessionOwner()
	if ok {
		p.seenOwner = append(p.seenOwner, owner)
	}
	if ok && p.justIn && p.site.bounces.Load() > 0 {
		p.site.bounces.Add(-1)
		ok = false
	}
	p.justIn = false
	if !ok {
		p.load(p.site.profile.Origin+"/login?returnTo=search", p.site.signInPage(!p.site.twoStep, true))
		return nil
	}
	p.load(url, p.site.results)
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	return p.url, ctx.Err()
}

func (p *fakePage) Has(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, s := range p.site.profile.UsernameSelectors {
		if s == selector {
			p.site.formQueries.Add(1)
			break
		}
	}
	if p.doc == nil {
		return false, nil
	}
	return p.doc.Find(selector).Length() > 0, nil
}

func (p *fakePage) element(selector string) (string, error) {
	if p.doc == nil {
		return "", errors.New("no document")
	}
	el := p.doc.Find(selector).First()
	if el.Length() == 0 {
		return "", fmt.Errorf("no element for %s", selector)
	}
	id, _ := el.Attr("id")
	return id, nil
}

func (p *fakePage) Input(_ context.Context, selector, text string) error {
	id, err := p.element(selector)
	if err != nil {
		return err
	}
	p.inputs[id] = text
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	id, err := p.element(selector)
	if err != nil {
		return err
	}
	s := p.site
	switch id {
	case s.continueID():
		p.load(s.profile.Origin+"/home", "<html><body>home</body></html>")
	case s.submitID():
		user := p.inputs[s.userID()]
		if user == "" {
			user = p.pending
		}
		secret, hasSecret := p.inputs[s.secretID()]
		if !hasSecret {
			// Username step of a two-step form.
			p.pending = user
			p.load(p.url, s.signInPage(true, false))
			return nil
		}
		if want, ok := s.accounts[user]; !ok || want != secret {
			p.load(p.url, s.signInPage(!s.twoStep, true))
			return nil
		}
		s.logins.Add(1)
		p.jar = append(p.jar, s.issue(user))
		p.justIn = true
		if s.interstitial {
			p.load(s.profile.Origin+"/session/active", s.interstitialPage())
			return nil
		}
		p.load(s.profile.Origin+"/home", "<html><body>home</body></html>")
	}
	return nil
}

func (p *fakePage) WaitSettled(ctx context.Context) error { return ctx.Err() }

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	return p.html, ctx.Err()
}

func (p *fakePage) Cookies(context.Context) ([]types.Cookie, error) {
	return types.CloneCookies(p.jar), nil
}

func (p *fakePage) SetCookies(_ context.Context, cookies []types.Cookie) error {
	p.jar = append(p.jar, types.CloneCookies(cookies)...)
	return nil
}

func (p *fakePage) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.site.pagesClosed.Add(1)
	}
	return nil
}

func fastTiming() Timing {
	return Timing{
		SearchTimeout: 5 * time.Second,
		ResultWait:    150 * time.Millisecond,
		GraceDelay:    20 * time.Millisecond,
		LoginFormWait: 150 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
	}
}

// resultsFixture renders titles the way each provider marks up its results.
func resultsFixture(p Profile, titles ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	switch p.Source {
	case types.SourceWestlaw:
		b.WriteString(`<div class="co_searchResult_list"><ol>`)
		for i, t := range titles {
			fmt.Fprintf(&b, `<li class="co_searchResult"><a class="co_searchResultTitle" href="/Document/I%d">%s</a>`+
				`<div class="co_searchResults_summary">Summary %d of a robbery case.</div></li>`, i, t, i)
		}
		b.WriteString(`</ol></div>`)
	case types.SourceLexis:
		b.WriteString(`<ol id="results-list">`)
		for i, t := range titles {
			fmt.Fprintf(&b, `<li class="usview"><h2 class="doc-title"><a class="titleLink" href="/document/?id=%d">%s</a></h2>`+
				`<p class="overview">Overview %d.</p></li>`, i, t, i)
		}
		b.WriteString(`</ol>`)
	case types.SourceLaw360:
		b.WriteString(`<div class="search-results">`)
		for i, t := range titles {
			fmt.Fprintf(&b, `<div class="search-result"><h3><a href="/articles/%d">%s</a></h3><p class="summary">Story %d.</p></div>`, i, t, i)
		}
		b.WriteString(`</div>`)
	case types.SourceBloombergLaw:
		b.WriteString(`<div class="search-results-list">`)
		for i, t := range titles {
			fmt.Fprintf(&b, `<div class="result-row"><a class="result-title" href="/document/X%d">%s</a><span class="result-court">D. Del.</span></div>`, i, t)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}
