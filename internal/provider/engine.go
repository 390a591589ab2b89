// Package provider drives provider sites through login and search.
//
// A single Engine implements the login state machine for every source. Each source
// contributes only a Profile: its URLs, ordered selector lists and extraction rules.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lexgate/internal/browser"
	"lexgate/internal/config"
	"lexgate/internal/extract"
	"lexgate/internal/logging"
	"lexgate/internal/metrics"
	"lexgate/internal/session"
	"lexgate/internal/types"
)

// maxLogins bounds logins per search: the first login plus one retry after a
// session expiry. More risks locking the account at the provider.
const maxLogins = 2

// Adapter searches one provider.
type Adapter interface {
	Source() types.Source
	Search(ctx context.Context, query string, creds types.Credentials, maxResults int) ([]types.ResultRecord, error)
}

// Pages hands out browsers and isolated pages. *browser.Manager implements it.
type Pages interface {
	AcquireBrowser(ctx context.Context) (browser.Browser, error)
	AcquirePage(ctx context.Context, b browser.Browser) (browser.Page, error)
}

// Timing holds the bounded waits used by the Engine.
type Timing struct {
	SearchTimeout time.Duration
	ResultWait    time.Duration
	GraceDelay    time.Duration
	LoginFormWait time.Duration
	PollInterval  time.Duration
}

// TimingFromConfig reads the provider waits from cfg.
func TimingFromConfig(cfg *config.Config) Timing {
	return Timing{
		SearchTimeout: cfg.GetSearchTimeout(),
		ResultWait:    cfg.GetResultWait(),
		GraceDelay:    cfg.GetGraceDelay(),
		LoginFormWait: cfg.GetLoginFormWait(),
		PollInterval:  cfg.GetPollInterval(),
	}
}

// State is a step in the login state machine.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateSessionExpired
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateSessionExpired:
		return "session_expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine runs searches for one Profile.
type Engine struct {
	profile Profile
	pages   Pages
	cache   *session.Cache
	timing  Timing
}

// NewEngine creates an engine for profile.
func NewEngine(profile Profile, pages Pages, cache *session.Cache, timing Timing) *Engine {
	return &Engine{profile: profile, pages: pages, cache: cache, timing: timing}
}

// Source returns the provider key.
func (e *Engine) Source() types.Source { return e.profile.Source }

// Search logs in if needed, runs query and extracts up to maxResults records.
// The leased page is closed on every return path.
func (e *Engine) Search(ctx context.Context, query string, creds types.Credentials, maxResults int) ([]types.ResultRecord, error) {
	if e.timing.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timing.SearchTimeout)
		defer cancel()
	}

	records, err := e.search(ctx, query, creds, maxResults)
	if err != nil {
		return nil, e.deadline(ctx, err)
	}
	return records, nil
}

func (e *Engine) search(ctx context.Context, query string, creds types.Credentials, maxResults int) ([]types.ResultRecord, error) {
	b, err := e.pages.AcquireBrowser(ctx)
	if err != nil {
		return nil, err
	}
	page, err := e.pages.AcquirePage(ctx, b)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logging.ProviderDebug("%s: page close: %v", e.profile.Source, cerr)
		}
	}()

	r := &run{
		Engine:    e,
		page:      page,
		creds:     creds,
		searchURL: e.profile.SearchURL(query),
		log:       logging.Get(logging.CategoryProvider).With("source", string(e.profile.Source), "user", creds.Username),
	}
	return r.execute(ctx, maxResults)
}

// deadline rewrites failures caused by the search deadline as timeouts. Caller
// cancellation and authentication failures keep their kind.
func (e *Engine) deadline(ctx context.Context, err error) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	if k := types.KindOf(err); k == types.KindAuthenticationFailed || k == types.KindLaunchFailure {
		return err
	}
	return types.NewError(types.KindTimeout, "provider.search",
		fmt.Sprintf("%s search did not finish within %v", e.profile.Name, e.timing.SearchTimeout), err)
}

// run is the state of one search on one page.
type run struct {
	*Engine
	page      browser.Page
	creds     types.Credentials
	searchURL string
	state     State
	logins    int
	log       *logging.Logger
}

func (r *run) transition(to State) {
	r.log.Debug("%s -> %s", r.state, to)
	r.state = to
}

func (r *run) execute(ctx context.Context, maxResults int) ([]types.ResultRecord, error) {
	src := r.profile.Source

	// Cookies must be on the page before the first navigation.
	restored := false
	if tok, ok := r.cache.Get(src, r.creds.Username); ok {
		metrics.SessionLookups.WithLabelValues(string(src), "hit").Inc()
		if err := r.page.SetCookies(ctx, tok.Cookies); err != nil {
			r.log.Warn("restoring cached session failed: %v", err)
		} else {
			restored = true
		}
	} else {
		metrics.SessionLookups.WithLabelValues(string(src), "miss").Inc()
	}

	if err := r.navigate(ctx); err != nil {
		return nil, err
	}

	for {
		onSignIn, err := r.onSignIn(ctx)
		if err != nil {
			return nil, err
		}
		if !onSignIn {
			r.transition(StateAuthenticated)
			if r.logins > 0 {
				// Cache the new session now so a slow result page does not cost
				// the next search another login.
				r.persist(ctx)
			}
			break
		}

		switch {
		case r.logins == 0 && restored:
			r.log.Info("cached session rejected, logging in again")
			r.cache.Delete(src, r.creds.Username)
		case r.logins > 0:
			r.transition(StateSessionExpired)
		}
		if r.logins >= maxLogins {
			r.rejected("session expired again after re-authentication")
			return nil, types.NewError(types.KindAuthenticationFailed, "provider.login",
				fmt.Sprintf("%s session keeps expiring after login, check credentials", r.profile.Name), nil)
		}

		if err := r.login(ctx); err != nil {
			return nil, err
		}

		stillSignIn, err := r.onSignIn(ctx)
		if err != nil {
			return nil, err
		}
		if stillSignIn {
			r.rejected("still on sign-in page after submit")
			return nil, types.NewError(types.KindAuthenticationFailed, "provider.login",
				fmt.Sprintf("%s login rejected, check credentials", r.profile.Name), nil)
		}
		metrics.Logins.WithLabelValues(string(src), "ok").Inc()

		// The first navigation happened before login; go back to the results.
		if err := r.navigate(ctx); err != nil {
			return nil, err
		}
	}

	if err := r.awaitResults(ctx); err != nil {
		return nil, err
	}

	doc, err := r.page.HTML(ctx)
	if err != nil {
		return nil, types.NewError(types.KindSearchFailed, "provider.extract", "could not read result page", err)
	}
	records, err := extract.Extract(doc, r.profile.Rules, maxResults)
	if err != nil {
		return nil, types.NewError(types.KindSearchFailed, "provider.extract", "could not parse result page", err)
	}

	// Refresh with whatever cookies the result page set.
	r.persist(ctx)
	r.log.Info("extracted %d records", len(records))
	return records, nil
}

func (r *run) navigate(ctx context.Context) error {
	if err := r.page.Navigate(ctx, r.searchURL); err != nil {
		return types.NewError(types.KindSearchFailed, "provider.navigate",
			fmt.Sprintf("could not load %s search page", r.profile.Name), err)
	}
	return nil
}

func (r *run) onSignIn(ctx context.Context) (bool, error) {
	addr, err := r.page.URL(ctx)
	if err != nil {
		return false, types.NewError(types.KindSearchFailed, "provider.url", "could not read page address", err)
	}
	return r.profile.IsSignIn(addr), nil
}

// login fills and submits the sign-in form. Sites that ask for the username and
// the secret on separate steps are handled by submitting the first step and waiting
// for the secret field.
func (r *run) login(ctx context.Context) error {
	r.transition(StateAuthenticating)
	r.logins++
	logging.Audit(logging.AuditEvent{
		Type:     logging.AuditLoginAttempt,
		Source:   string(r.profile.Source),
		Username: r.creds.Username,
	})

	userSel, outcome, err := browser.WaitForAny(ctx, r.page, r.profile.UsernameSelectors, r.timing.LoginFormWait, r.timing.PollInterval)
	if err != nil {
		return err
	}
	if outcome == browser.WaitTimedOut {
		metrics.Logins.WithLabelValues(string(r.profile.Source), "error").Inc()
		return types.NewError(types.KindTimeout, "provider.login",
			fmt.Sprintf("%s login form did not appear", r.profile.Name), nil)
	}
	if err := r.page.Input(ctx, userSel, r.creds.Username); err != nil {
		return r.loginError("could not enter username on login form", err)
	}

	secretSel, ok := browser.FirstPresent(ctx, r.page, r.profile.SecretSelectors)
	if !ok {
		if err := r.submit(ctx); err != nil {
			return err
		}
		secretSel, outcome, err = browser.WaitForAny(ctx, r.page, r.profile.SecretSelectors, r.timing.LoginFormWait, r.timing.PollInterval)
		if err != nil {
			return err
		}
		if outcome == browser.WaitTimedOut {
			// Unknown username pages usually stay on sign-in without a secret field.
			r.log.Warn("secret field never appeared after username step")
			return nil
		}
	}
	if err := r.page.Input(ctx, secretSel, r.creds.Secret); err != nil {
		return r.loginError("could not enter password on login form", err)
	}
	if err := r.submit(ctx); err != nil {
		return err
	}

	if sel, ok := browser.FirstPresent(ctx, r.page, r.profile.ContinueSelectors); ok {
		r.log.Info("session active elsewhere, continuing")
		if err := r.page.Click(ctx, sel); err != nil {
			return r.loginError("could not confirm login interstitial", err)
		}
		r.settle(ctx)
	}
	return ctx.Err()
}

func (r *run) submit(ctx context.Context) error {
	sel, ok := browser.FirstPresent(ctx, r.page, r.profile.SubmitSelectors)
	if !ok {
		return r.loginError("login submit control not found", nil)
	}
	if err := r.page.Click(ctx, sel); err != nil {
		return r.loginError("could not submit login form", err)
	}
	r.settle(ctx)
	return nil
}

// settle waits for the post-submit navigation. A failed settle is not fatal;
// the address check that follows decides what happened.
func (r *run) settle(ctx context.Context) {
	if err := r.page.WaitSettled(ctx); err != nil {
		r.log.Debug("settle after submit: %v", err)
	}
}

func (r *run) loginError(msg string, err error) error {
	metrics.Logins.WithLabelValues(string(r.profile.Source), "error").Inc()
	return types.NewError(types.KindSearchFailed, "provider.login", r.profile.Name+" "+msg, err)
}

func (r *run) rejected(why string) {
	metrics.Logins.WithLabelValues(string(r.profile.Source), "rejected").Inc()
	r.log.Warn("login rejected: %s", why)
	logging.Audit(logging.AuditEvent{
		Type:     logging.AuditLoginRejected,
		Source:   string(r.profile.Source),
		Username: r.creds.Username,
		Message:  why,
	})
}

// awaitResults waits for a result marker. Missing markers are not an error: after
// the wait the engine pauses for the grace delay and extracts whatever rendered.
func (r *run) awaitResults(ctx context.Context) error {
	sel, outcome, err := browser.WaitForAny(ctx, r.page, r.profile.ResultMarkers, r.timing.ResultWait, r.timing.PollInterval)
	if err != nil {
		return err
	}
	if outcome == browser.WaitMatched {
		r.log.Debug("result marker %q present", sel)
		return nil
	}
	metrics.ResultWaitTimeouts.WithLabelValues(string(r.profile.Source)).Inc()
	r.log.Warn("no result marker after %v, continuing after grace delay", r.timing.ResultWait)
	return browser.Sleep(ctx, r.timing.GraceDelay)
}

// persist snapshots the page cookies into the session cache. Failure only costs a
// login on the next search.
func (r *run) persist(ctx context.Context) {
	cookies, err := r.page.Cookies(ctx)
	if err != nil {
		r.log.Warn("could not snapshot session cookies: %v", err)
		return
	}
	r.cache.Put(r.profile.Source, r.creds.Username, session.Token{Cookies: cookies})
}
