package rod

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/propcrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultMaxPages is the number of tabs a browser serves before it is replaced.
const DefaultMaxPages = 75

// DefaultAcceptLanguage is sent with every page load unless overridden.
const DefaultAcceptLanguage = "en-AU,en-US;q=0.9,en;q=0.8"

// BrowserManager owns the headless Chrome processes behind a Fetcher.
//
// Every tab it opens carries the configured User-Agent and Accept-Language.
// Chrome's memory never returns to its baseline, so after maxPages tabs the
// browser is replaced. A replaced browser keeps running until the tabs
// still open on it are released.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu         sync.Mutex
	current    *instance
	retired    map[*instance]struct{}
	generation int
	closed     atomic.Bool

	maxPages       int64
	userAgent      string
	acceptLanguage string
}

// instance is one launched browser and the tabs opened on it.
type instance struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	userAgent string
	opened    int64
	active    int
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets how many tabs a browser serves before it is replaced.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithUserAgent sets the User-Agent of every tab. By default the browser's
// own user agent is used with the headless marker removed.
func WithUserAgent(ua string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.userAgent = ua
	}
}

// WithAcceptLanguage sets the Accept-Language of every tab.
func WithAcceptLanguage(lang string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.acceptLanguage = lang
	}
}

// NewBrowserManager launches a headless Chrome. Close must be called when
// the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		retired:        make(map[*instance]struct{}),
		maxPages:       DefaultMaxPages,
		acceptLanguage: DefaultAcceptLanguage,
	}
	for _, opt := range opts {
		opt(bm)
	}

	inst, err := bm.launch()
	if err != nil {
		return nil, err
	}
	bm.current = inst
	return bm, nil
}

// NewPage opens a tab bound to ctx with the configured headers applied.
// The returned release func closes the tab and must be called exactly once.
func (bm *BrowserManager) NewPage(ctx context.Context) (*rod.Page, func(), error) {
	if bm.closed.Load() {
		return nil, nil, propcrawl.Errorf(propcrawl.EINVALID, "browser manager is closed")
	}

	bm.mu.Lock()
	if bm.closed.Load() {
		bm.mu.Unlock()
		return nil, nil, propcrawl.Errorf(propcrawl.EINVALID, "browser manager is closed")
	}
	if bm.current.opened >= bm.maxPages {
		bm.recycle()
	}
	inst := bm.current
	inst.opened++
	inst.active++
	bm.mu.Unlock()

	page, err := inst.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		bm.release(inst)
		return nil, nil, fmt.Errorf("opening tab: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      inst.userAgent,
		AcceptLanguage: bm.acceptLanguage,
	}); err != nil {
		_ = page.Close()
		bm.release(inst)
		return nil, nil, fmt.Errorf("setting user agent: %w", err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = page.Close()
			bm.release(inst)
		})
	}
	return page.Context(ctx), release, nil
}

// Generation counts how many times the browser has been replaced.
func (bm *BrowserManager) Generation() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.generation
}

// Close shuts down every browser, including replaced ones with open tabs.
// Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	if !bm.closed.CompareAndSwap(false, true) {
		return nil
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	err := bm.current.close()
	for inst := range bm.retired {
		_ = inst.close()
		delete(bm.retired, inst)
	}
	return err
}

// LauncherPID returns the process ID of the current browser's launcher.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.current == nil || bm.current.launcher == nil {
		return 0
	}
	return bm.current.launcher.PID()
}

// launch starts a browser with background throttling disabled.
func (bm *BrowserManager) launch() (*instance, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	inst := &instance{browser: browser, launcher: l, userAgent: bm.userAgent}
	if inst.userAgent == "" {
		v, err := proto.BrowserGetVersion{}.Call(browser)
		if err != nil {
			_ = inst.close()
			return nil, fmt.Errorf("reading browser version: %w", err)
		}
		inst.userAgent = strings.ReplaceAll(v.UserAgent, "HeadlessChrome", "Chrome")
	}
	return inst, nil
}

// recycle replaces the current browser. If the launch fails the current
// browser keeps serving. Must be called with mu held.
func (bm *BrowserManager) recycle() {
	next, err := bm.launch()
	if err != nil {
		return
	}
	old := bm.current
	bm.current = next
	bm.generation++
	if old.active == 0 {
		_ = old.close()
		return
	}
	bm.retired[old] = struct{}{}
}

// release marks a tab of inst closed and shuts inst down once a replaced
// browser has no tabs left.
func (bm *BrowserManager) release(inst *instance) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	inst.active--
	if _, ok := bm.retired[inst]; ok && inst.active == 0 {
		delete(bm.retired, inst)
		_ = inst.close()
	}
}

func (inst *instance) close() error {
	var err error
	if inst.browser != nil {
		err = inst.browser.Close()
		inst.browser = nil
	}
	if inst.launcher != nil {
		inst.launcher.Kill()
		inst.launcher = nil
	}
	return err
}
