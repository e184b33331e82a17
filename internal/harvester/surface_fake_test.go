package harvester

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// fakeSurface is a scriptable in-memory Surface used by the heuristic and
// loop tests. Settle is a no-op so tests run at full speed.
type fakeSurface struct {
	mu sync.Mutex

	htmlFunc  func(call int) string
	htmlCalls int
	bodyText  string

	navErr    error
	navigated []string

	exists      map[string]bool
	elementText map[string]string

	activeTexts      []string
	tabPresses       int
	enterPresses     int
	exactClickResult bool
	exactClicked     []string

	clicks       []string
	clickErr     error
	scriptClicks []string

	filled   map[string]string
	fillErrs map[string]error

	scrolls        int
	buttonClicks   int
	buttonsToClick int

	closed bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		exists:      make(map[string]bool),
		elementText: make(map[string]string),
		filled:      make(map[string]string),
		fillErrs:    make(map[string]error),
	}
}

func (f *fakeSurface) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeSurface) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.htmlCalls
	f.htmlCalls++
	if f.htmlFunc == nil {
		return "<html><body></body></html>", nil
	}
	return f.htmlFunc(call), nil
}

func (f *fakeSurface) BodyText(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodyText, nil
}

func (f *fakeSurface) ScrollBy(ctx context.Context, pixels int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls++
	return nil
}

func (f *fakeSurface) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, selector)
	return f.clickErr
}

func (f *fakeSurface) ClickScript(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scriptClicks = append(f.scriptClicks, selector)
	return true, nil
}

func (f *fakeSurface) ClickExactText(ctx context.Context, label string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exactClicked = append(f.exactClicked, label)
	return f.exactClickResult, nil
}

func (f *fakeSurface) ClickButtonsContaining(ctx context.Context, tokens ...string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttonClicks++
	return f.buttonsToClick, nil
}

func (f *fakeSurface) ElementText(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elementText[selector], nil
}

func (f *fakeSurface) Exists(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists[selector], nil
}

func (f *fakeSurface) Fill(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fillErrs[selector]; err != nil {
		return err
	}
	f.filled[selector] = value
	return nil
}

func (f *fakeSurface) PressTab(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabPresses++
	return nil
}

func (f *fakeSurface) PressEnter(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enterPresses++
	return nil
}

func (f *fakeSurface) ActiveElementText(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tabPresses-1 < len(f.activeTexts) && f.tabPresses > 0 {
		return f.activeTexts[f.tabPresses-1], nil
	}
	return "", nil
}

func (f *fakeSurface) Settle(ctx context.Context, d time.Duration) {}

func (f *fakeSurface) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
