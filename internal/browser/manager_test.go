package browser

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lexgate/internal/config"
	"lexgate/internal/types"
)

type stubPage struct {
	closed atomic.Int32
}

func (p *stubPage) Navigate(context.Context, string) error          { return nil }
func (p *stubPage) URL(context.Context) (string, error)             { return "about:blank", nil }
func (p *stubPage) Has(context.Context, string) (bool, error)       { return false, nil }
func (p *stubPage) Input(context.Context, string, string) error     { return nil }
func (p *stubPage) Click(context.Context, string) error             { return nil }
func (p *stubPage) WaitSettled(context.Context) error               { return nil }
func (p *stubPage) HTML(context.Context) (string, error)            { return "<html></html>", nil }
func (p *stubPage) Cookies(context.Context) ([]types.Cookie, error) { return nil, nil }
func (p *stubPage) SetCookies(context.Context, []types.Cookie) error {
	return nil
}
func (p *stubPage) Close() error {
	p.closed.Add(1)
	return nil
}

type stubBrowser struct {
	alive  atomic.Bool
	closed atomic.Bool
	// missed is how many liveness probes fail before the browser answers again.
	missed atomic.Int32
	opts   PageOptions
	pages  []*stubPage
	mu     sync.Mutex
}

func (b *stubBrowser) NewPage(_ context.Context, opts PageOptions) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts = opts
	p := &stubPage{}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *stubBrowser) Alive() bool {
	if b.missed.Load() > 0 {
		b.missed.Add(-1)
		return false
	}
	return b.alive.Load() && !b.closed.Load()
}

func (b *stubBrowser) Close() error {
	b.closed.Store(true)
	return nil
}

type countingLauncher struct {
	launches atomic.Int32
	delay    time.Duration
	err      error

	mu       sync.Mutex
	browsers []*stubBrowser
}

func (l *countingLauncher) Launch(ctx context.Context) (Browser, error) {
	l.launches.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.err != nil {
		return nil, l.err
	}
	b := &stubBrowser{}
	b.alive.Store(true)
	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

func (l *countingLauncher) last() *stubBrowser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.browsers[len(l.browsers)-1]
}

func TestMain(m *testing.M) {
	probeRetryDelay = time.Millisecond
	os.Exit(m.Run())
}

func testBrowserConfig() config.BrowserConfig {
	cfg := config.DefaultBrowserConfig()
	cfg.MaxPages = 2
	return cfg
}

func TestAcquireBrowserLaunchesOnceUnderConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLauncher{delay: 50 * time.Millisecond}
	m := NewManager(l, testBrowserConfig())

	const callers = 50
	var wg sync.WaitGroup
	handles := make([]Browser, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			handles[i], errs[i] = m.AcquireBrowser(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), l.launches.Load(), "exactly one process must start")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}
}

func TestAcquireBrowserReusesLiveProcess(t *testing.T) {
	l := &countingLauncher{}
	m := NewManager(l, testBrowserConfig())

	b1, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)
	b2, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)

	assert.Same(t, b1, b2)
	assert.Equal(t, int32(1), l.launches.Load())
	assert.True(t, m.IsConnected())
}

func TestAcquireBrowserRelaunchesAfterCrash(t *testing.T) {
	l := &countingLauncher{}
	m := NewManager(l, testBrowserConfig())

	b1, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)

	// Simulate the process being killed.
	l.last().alive.Store(false)

	b2, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, b1, b2)
	assert.True(t, b2.Alive())
	assert.True(t, b1.(*stubBrowser).closed.Load(), "dead handle should be closed")
	assert.Equal(t, int32(2), l.launches.Load())
}

func TestAcquireBrowserKeepsBusyProcess(t *testing.T) {
	l := &countingLauncher{}
	m := NewManager(l, testBrowserConfig())

	b1, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)

	// Fast path and the in-flight recheck both miss; a later probe answers.
	b1.(*stubBrowser).missed.Store(2)

	b2, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)
	assert.Same(t, b1, b2)
	assert.False(t, b1.(*stubBrowser).closed.Load(), "a slow probe must not kill the process")
	assert.Equal(t, int32(1), l.launches.Load())
}

func TestAcquireBrowserLaunchFailure(t *testing.T) {
	l := &countingLauncher{err: errors.New("chrome not found")}
	m := NewManager(l, testBrowserConfig())

	_, err := m.AcquireBrowser(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.KindLaunchFailure, types.KindOf(err))
	assert.Contains(t, err.Error(), "chrome not found")
	assert.Equal(t, int32(1), l.launches.Load(), "launch must not be retried silently")
	assert.False(t, m.IsConnected())
}

func TestAcquireBrowserCallerDeadlineDoesNotAbortLaunch(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLauncher{delay: 100 * time.Millisecond}
	m := NewManager(l, testBrowserConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.AcquireBrowser(ctx)
	require.Error(t, err)
	assert.Equal(t, types.KindTimeout, types.KindOf(err))

	// The launch keeps going and the next caller gets the process.
	b, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)
	assert.True(t, b.Alive())
	assert.Equal(t, int32(1), l.launches.Load())
}

func TestAcquirePageAppliesHardeningAndReleasesSlot(t *testing.T) {
	l := &countingLauncher{}
	m := NewManager(l, testBrowserConfig())
	b, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)

	p1, err := m.AcquirePage(context.Background(), b)
	require.NoError(t, err)
	p2, err := m.AcquirePage(context.Background(), b)
	require.NoError(t, err)

	sb := b.(*stubBrowser)
	assert.Equal(t, config.DefaultUserAgent, sb.opts.UserAgent)
	assert.Equal(t, 30*time.Second, sb.opts.NavigationTimeout)
	assert.True(t, sb.opts.BlockImages && sb.opts.BlockFonts && sb.opts.BlockMedia)

	// Both slots are taken; a third lease must wait and give up at its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.AcquirePage(ctx, b)
	require.Error(t, err)
	assert.Equal(t, types.KindTimeout, types.KindOf(err))

	require.NoError(t, p1.Close())
	require.NoError(t, p1.Close(), "second close is a no-op")
	assert.Equal(t, int32(1), sb.pages[0].closed.Load())

	p3, err := m.AcquirePage(context.Background(), b)
	require.NoError(t, err)
	require.NoError(t, p2.Close())
	require.NoError(t, p3.Close())
}

func TestShutdown(t *testing.T) {
	l := &countingLauncher{}
	m := NewManager(l, testBrowserConfig())
	_, err := m.AcquireBrowser(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.True(t, l.last().closed.Load())

	_, err = m.AcquireBrowser(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestShutdownDuringLaunchClosesNewBrowser(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLauncher{delay: 100 * time.Millisecond}
	m := NewManager(l, testBrowserConfig())

	errCh := make(chan error, 1)
	go func() {
		_, err := m.AcquireBrowser(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Shutdown(context.Background()))

	assert.ErrorIs(t, <-errCh, ErrShutdown)
	assert.Equal(t, int32(1), l.launches.Load())
	assert.True(t, l.last().closed.Load(), "browser started during shutdown must be closed")
	assert.False(t, m.IsConnected())
}
