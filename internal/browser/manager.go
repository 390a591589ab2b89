package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"lexgate/internal/config"
	"lexgate/internal/logging"
	"lexgate/internal/metrics"
	"lexgate/internal/types"
)

// ErrShutdown is returned by AcquireBrowser after Shutdown.
var ErrShutdown = errors.New("browser manager shut down")

// Extra liveness probes before a browser that missed one is declared dead.
const deadProbes = 2

var probeRetryDelay = 250 * time.Millisecond

// Manager owns the shared browser process and the page lease budget.
type Manager struct {
	launcher Launcher
	pageOpts PageOptions

	mu       sync.RWMutex
	browser  Browser
	shutdown bool

	// launch guards process start; only concurrent cold-start callers share it.
	launch singleflight.Group
	pages  *semaphore.Weighted
}

// NewManager creates a manager. No process is started until the first AcquireBrowser.
func NewManager(launcher Launcher, cfg config.BrowserConfig) *Manager {
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	return &Manager{
		launcher: launcher,
		pageOpts: PageOptions{
			UserAgent:         ua,
			NavigationTimeout: cfg.GetNavigationTimeout(),
			OperationTimeout:  cfg.GetOperationTimeout(),
			BlockImages:       cfg.BlockImages,
			BlockFonts:        cfg.BlockFonts,
			BlockMedia:        cfg.BlockMedia,
		},
		pages: semaphore.NewWeighted(int64(maxPages)),
	}
}

// AcquireBrowser returns the live shared browser, launching it if there is none or
// the previous process died. Concurrent callers during a launch all wait for that one
// launch; launch failure is reported as KindLaunchFailure and not retried here.
func (m *Manager) AcquireBrowser(ctx context.Context) (Browser, error) {
	m.mu.RLock()
	b, closed := m.browser, m.shutdown
	m.mu.RUnlock()
	if closed {
		return nil, ErrShutdown
	}
	if b != nil && b.Alive() {
		return b, nil
	}

	ch := m.launch.DoChan("launch", func() (interface{}, error) {
		return m.launchLocked(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Browser), nil
	case <-ctx.Done():
		return nil, types.NewError(types.KindTimeout, "browser.acquire", "waiting for browser launch", ctx.Err())
	}
}

// launchLocked runs inside the singleflight; it re-checks liveness so a caller that
// raced past the fast path does not start a second process.
func (m *Manager) launchLocked(ctx context.Context) (Browser, error) {
	m.mu.RLock()
	cur, closed := m.browser, m.shutdown
	m.mu.RUnlock()
	if closed {
		return nil, ErrShutdown
	}
	if cur != nil {
		if cur.Alive() || !confirmDead(cur) {
			return cur, nil
		}
		logging.BrowserWarn("stale browser connection detected, relaunching")
		metrics.BrowserRelaunches.Inc()
		_ = cur.Close()
	}

	start := time.Now()
	nb, err := m.launcher.Launch(ctx)
	if err != nil {
		metrics.BrowserLaunchFailures.Inc()
		logging.BrowserError("browser launch failed: %v", err)
		return nil, types.NewError(types.KindLaunchFailure, "browser.launch", "could not start browser", err)
	}
	metrics.BrowserLaunches.Inc()
	logging.Browser("browser launched in %v", time.Since(start))
	logging.Audit(logging.AuditEvent{Type: logging.AuditBrowserLaunch, Duration: time.Since(start), Message: "browser launched"})

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		logging.BrowserWarn("shutdown during launch, closing new browser")
		_ = nb.Close()
		return nil, ErrShutdown
	}
	m.browser = nb
	m.mu.Unlock()
	return nb, nil
}

// confirmDead re-probes a browser that failed a liveness check. A busy process can
// miss a single probe, and closing it kills every page other searches hold.
func confirmDead(b Browser) bool {
	for i := 0; i < deadProbes; i++ {
		time.Sleep(probeRetryDelay)
		if b.Alive() {
			logging.BrowserDebug("browser answered probe %d after a missed one", i+1)
			return false
		}
	}
	return true
}

// AcquirePage leases a hardened page from b. The page slot is returned on Close.
func (m *Manager) AcquirePage(ctx context.Context, b Browser) (Page, error) {
	if err := m.pages.Acquire(ctx, 1); err != nil {
		return nil, types.NewError(types.KindTimeout, "browser.page", "no page slot available", err)
	}
	p, err := b.NewPage(ctx, m.pageOpts)
	if err != nil {
		m.pages.Release(1)
		return nil, fmt.Errorf("open page: %w", err)
	}
	metrics.PagesInUse.Inc()
	return &leasedPage{Page: p, release: func() {
		metrics.PagesInUse.Dec()
		m.pages.Release(1)
	}}, nil
}

// IsConnected reports whether a browser handle is held. It does not probe the process.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Shutdown closes the browser. Further acquisitions fail with ErrShutdown.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	b := m.browser
	m.browser = nil
	m.shutdown = true
	m.mu.Unlock()

	if b == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- b.Close() }()
	select {
	case err := <-done:
		logging.Browser("browser shut down")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// leasedPage returns its semaphore slot exactly once.
type leasedPage struct {
	Page
	once    sync.Once
	release func()
}

func (p *leasedPage) Close() error {
	var err error
	p.once.Do(func() {
		err = p.Page.Close()
		p.release()
	})
	return err
}
