package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"lexgate/internal/config"
	"lexgate/internal/logging"
	"lexgate/internal/types"
)

// settleQuietPeriod is how long the DOM must stay unchanged for WaitSettled.
const settleQuietPeriod = 500 * time.Millisecond

// RodLauncher launches a local Chrome through rod's launcher.
type RodLauncher struct {
	cfg config.BrowserConfig
}

// NewRodLauncher creates a launcher from config.
func NewRodLauncher(cfg config.BrowserConfig) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

// Launch starts Chrome and connects to its DevTools endpoint.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	launch := launcher.New().Context(ctx).Headless(l.cfg.Headless)
	if l.cfg.Bin != "" {
		launch = launch.Bin(l.cfg.Bin)
	}
	if l.cfg.NoSandbox {
		launch = launch.NoSandbox(true)
	}
	for _, rawFlag := range l.cfg.Flags {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			launch = launch.Set(flags.Flag(name), val)
		} else {
			launch = launch.Set(flags.Flag(name))
		}
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		launch.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	logging.BrowserDebug("connected to %s", controlURL)
	return &rodBrowser{browser: b, launcher: launch}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (b *rodBrowser) Alive() bool {
	_, err := b.browser.Timeout(2 * time.Second).Version()
	return err == nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

// NewPage opens a page in a fresh incognito context so cookies are never shared.
func (b *rodBrowser) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	incognito, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	// Detach from the request context so Close still works after ctx is done.
	incognito = incognito.Context(context.Background())

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			logging.BrowserWarn("failed to set user agent: %v", err)
		}
	}

	rp := &rodPage{page: page, incognito: incognito, opts: opts}
	if blocked := blockedTypes(opts); len(blocked) > 0 {
		router := page.HijackRequests()
		for _, rt := range blocked {
			if err := router.Add("*", rt, func(h *rod.Hijack) {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			}); err != nil {
				logging.BrowserWarn("failed to add resource filter for %s: %v", rt, err)
			}
		}
		go router.Run()
		rp.router = router
	}
	return rp, nil
}

func blockedTypes(opts PageOptions) []proto.NetworkResourceType {
	var out []proto.NetworkResourceType
	if opts.BlockImages {
		out = append(out, proto.NetworkResourceTypeImage)
	}
	if opts.BlockFonts {
		out = append(out, proto.NetworkResourceTypeFont)
	}
	if opts.BlockMedia {
		out = append(out, proto.NetworkResourceTypeMedia)
	}
	return out
}

type rodPage struct {
	page      *rod.Page
	incognito *rod.Browser
	router    *rod.HijackRouter
	opts      PageOptions

	closeOnce sync.Once
	closeErr  error
}

func (p *rodPage) nav(ctx context.Context) *rod.Page {
	return p.page.Context(ctx).Timeout(p.opts.NavigationTimeout)
}

func (p *rodPage) op(ctx context.Context) *rod.Page {
	return p.page.Context(ctx).Timeout(p.opts.OperationTimeout)
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.nav(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.op(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.op(ctx).Has(selector)
	return has, err
}

func (p *rodPage) Input(ctx context.Context, selector, text string) error {
	el, err := p.op(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		logging.BrowserDebug("select text in %s: %v", selector, err)
	}
	return el.Input(text)
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.op(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) WaitSettled(ctx context.Context) error {
	pg := p.nav(ctx)
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return pg.WaitStable(settleQuietPeriod)
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.op(ctx).HTML()
}

// Cookies snapshots every cookie visible to the page's incognito context.
func (p *rodPage) Cookies(ctx context.Context) ([]types.Cookie, error) {
	res, err := proto.NetworkGetCookies{}.Call(p.op(ctx))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	out := make([]types.Cookie, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		ck := types.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
		if !c.Session && c.Expires > 0 {
			ck.Expires = c.Expires.Time()
		}
		out = append(out, ck)
	}
	return out, nil
}

// SetCookies restores a snapshot taken by Cookies.
func (p *rodPage) SetCookies(ctx context.Context, cookies []types.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		}
		if !c.Expires.IsZero() {
			param.Expires = proto.TimeSinceEpoch(c.Expires.Unix())
		}
		params = append(params, param)
	}
	return p.op(ctx).SetCookies(params)
}

func (p *rodPage) Close() error {
	p.closeOnce.Do(func() {
		if p.router != nil {
			_ = p.router.Stop()
		}
		p.closeErr = p.page.Close()
		if err := p.incognito.Close(); err != nil && p.closeErr == nil {
			p.closeErr = err
		}
	})
	return p.closeErr
}
