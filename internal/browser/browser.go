// Package browser owns the shared headless Chrome process and hands out isolated pages.
//
// Exactly one browser process is shared by every request. Each search leases its own
// incognito page, so cookies never leak between concurrent users, and must Close it on
// every exit path.
package browser

import (
	"context"
	"time"

	"lexgate/internal/types"
)

// Page is one isolated browsing context leased for a single search.
// Implementations bound every call by the page's default timeouts as well as ctx.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// URL returns the current address, after any redirects.
	URL(ctx context.Context) (string, error)
	// Has reports whether selector currently matches, without waiting.
	Has(ctx context.Context, selector string) (bool, error)
	// Input replaces the value of the first element matching selector.
	Input(ctx context.Context, selector, text string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// WaitSettled waits for navigation triggered by the last action to finish.
	WaitSettled(ctx context.Context) error
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]types.Cookie, error)
	SetCookies(ctx context.Context, cookies []types.Cookie) error
	// Close releases the page. Safe to call more than once.
	Close() error
}

// Browser is a handle on the shared process.
type Browser interface {
	NewPage(ctx context.Context, opts PageOptions) (Page, error)
	// Alive reports whether the process still answers; false after a crash or kill.
	Alive() bool
	Close() error
}

// Launcher starts a new browser process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// PageOptions is the hardening applied to every leased page.
type PageOptions struct {
	UserAgent         string
	NavigationTimeout time.Duration
	OperationTimeout  time.Duration
	BlockImages       bool
	BlockFonts        bool
	BlockMedia        bool
}
