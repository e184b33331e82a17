package harvester

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-harvester/pkg/types"
)

// ErrSessionAcquisition is returned when no browser engine could be started.
var ErrSessionAcquisition = errors.New("no usable browser session available")

// Surface is the live, queryable page exposed by a browser engine. Every
// call is bounded by the run's per-action timeout; callers treat individual
// failures as recoverable unless documented otherwise.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	BodyText(ctx context.Context) (string, error)

	ScrollBy(ctx context.Context, pixels int) error
	Click(ctx context.Context, selector string) error
	// ClickScript dispatches a programmatic click on the first element
	// matching selector; it reports whether the element existed.
	ClickScript(ctx context.Context, selector string) (bool, error)
	// ClickExactText scans interactive elements for one whose trimmed text
	// equals label case-insensitively and clicks it, preferring a native
	// click with a programmatic fallback.
	ClickExactText(ctx context.Context, label string) (bool, error)
	// ClickButtonsContaining clicks every button-like element whose text
	// contains all the given tokens and returns how many were clicked.
	ClickButtonsContaining(ctx context.Context, tokens ...string) (int, error)

	ElementText(ctx context.Context, selector string) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)
	Fill(ctx context.Context, selector, value string) error

	PressTab(ctx context.Context) error
	PressEnter(ctx context.Context) error
	ActiveElementText(ctx context.Context) (string, error)

	// Settle blocks for the given interval (or until ctx is done) to let
	// asynchronous rendering finish after a UI-mutating action.
	Settle(ctx context.Context, d time.Duration)
	Close()
}

// SurfaceFactory opens a browser session for one run.
type SurfaceFactory func(ctx context.Context, cfg types.HarvestConfig, logger *logrus.Logger) (Surface, error)

// ResolveSurface opens the preferred available engine: headless Chrome via
// chromedp, falling back to Firefox via Selenium. With no engine available
// the run cannot start and ErrSessionAcquisition is returned.
func ResolveSurface(ctx context.Context, cfg types.HarvestConfig, logger *logrus.Logger) (Surface, error) {
	if isChromeAvailable() {
		surface, err := NewChromeSurface(ctx, cfg, logger)
		if err == nil {
			return surface, nil
		}
		logger.Warnf("Chrome session failed, trying Selenium Firefox: %v", err)
	}

	if isFirefoxAvailable() {
		surface, err := NewSeleniumSurface(cfg, logger)
		if err == nil {
			return surface, nil
		}
		logger.Warnf("Selenium Firefox session failed: %v", err)
	}

	return nil, ErrSessionAcquisition
}

func isChromeAvailable() bool {
	paths := []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}
	for _, path := range paths {
		if _, err := exec.LookPath(path); err == nil {
			return true
		}
	}
	return false
}

func isFirefoxAvailable() bool {
	_, err := exec.LookPath("firefox")
	return err == nil
}

// settle is the shared ctx-aware sleep used by the engine implementations.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
