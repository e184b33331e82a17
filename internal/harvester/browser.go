package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/sirupsen/logrus"

	"linkedin-harvester/pkg/types"
)

// ChromeSurface drives a headless Chrome/Chromium instance through chromedp.
type ChromeSurface struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *logrus.Logger
}

func NewChromeSurface(ctx context.Context, cfg types.HarvestConfig, logger *logrus.Logger) (*ChromeSurface, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
	)

	surface := &ChromeSurface{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     cfg.ActionTimeout,
		logger:      logger,
	}

	// Start the browser and pin a desktop viewport so comment UI renders in
	// its desktop layout.
	err := surface.run(ctx, chromedp.ActionFunc(func(actx context.Context) error {
		if err := emulation.SetDeviceMetricsOverride(1366, 900, 1, false).Do(actx); err != nil {
			return err
		}
		return emulation.SetUserAgentOverride(cfg.UserAgent).Do(actx)
	}))
	if err != nil {
		surface.Close()
		return nil, fmt.Errorf("failed to start Chrome session: %w", err)
	}

	return surface, nil
}

// run executes chromedp actions against the session with the per-action
// timeout applied, honoring the caller's cancellation.
func (cs *ChromeSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(cs.ctx, cs.timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

func (cs *ChromeSurface) Navigate(ctx context.Context, url string) error {
	return cs.run(ctx, chromedp.Navigate(url))
}

func (cs *ChromeSurface) HTML(ctx context.Context) (string, error) {
	var html string
	err := cs.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (cs *ChromeSurface) BodyText(ctx context.Context) (string, error) {
	var text string
	err := cs.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery))
	return text, err
}

func (cs *ChromeSurface) ScrollBy(ctx context.Context, pixels int) error {
	return cs.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d);", pixels), nil))
}

func (cs *ChromeSurface) Click(ctx context.Context, selector string) error {
	return cs.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (cs *ChromeSurface) ClickScript(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) { return false; }
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, selector)

	var clicked bool
	err := cs.run(ctx, chromedp.Evaluate(script, &clicked))
	return clicked, err
}

// clickTargetAttr marks the element resolved by an exact-text scan so a
// native input-event click can reach it by selector.
const clickTargetAttr = "data-harvester-click-target"

func (cs *ChromeSurface) ClickExactText(ctx context.Context, label string) (bool, error) {
	tagScript := fmt.Sprintf(`(() => {
		const want = %q;
		const els = Array.from(document.querySelectorAll('span, div, a, button, li'));
		for (const el of els) {
			const text = (el.innerText || '').trim().toLowerCase();
			if (text === want) {
				el.scrollIntoView({block: 'center'});
				el.setAttribute('%s', '1');
				return true;
			}
		}
		return false;
	})()`, strings.ToLower(strings.TrimSpace(label)), clickTargetAttr)

	var found bool
	if err := cs.run(ctx, chromedp.Evaluate(tagScript, &found)); err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	target := fmt.Sprintf("[%s='1']", clickTargetAttr)
	defer cs.run(ctx, chromedp.Evaluate(fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el) { el.removeAttribute('%s'); }
		return true;
	})()`, target, clickTargetAttr), nil))

	// Native click first; fall back to a programmatic dispatch when the
	// element will not take real input events.
	if err := cs.run(ctx, chromedp.Click(target, chromedp.ByQuery)); err != nil {
		cs.logger.Debugf("Native click on %q failed, dispatching programmatic click: %v", label, err)
		if _, err := cs.ClickScript(ctx, target); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (cs *ChromeSurface) ClickButtonsContaining(ctx context.Context, tokens ...string) (int, error) {
	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}
	encoded, err := json.Marshal(lowered)
	if err != nil {
		return 0, err
	}

	script := fmt.Sprintf(`(() => {
		const tokens = %s;
		let clicked = 0;
		const els = Array.from(document.querySelectorAll("button, a[role='button'], div[role='button']"));
		for (const el of els) {
			const text = (el.innerText || '').toLowerCase();
			if (tokens.every(tok => text.includes(tok))) {
				try { el.click(); clicked++; } catch (e) {}
			}
		}
		return clicked;
	})()`, string(encoded))

	var clicked int
	err = cs.run(ctx, chromedp.Evaluate(script, &clicked))
	return clicked, err
}

func (cs *ChromeSurface) ElementText(ctx context.Context, selector string) (string, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? (el.innerText || '') : '';
	})()`, selector)

	var text string
	err := cs.run(ctx, chromedp.Evaluate(script, &text))
	return text, err
}

func (cs *ChromeSurface) Exists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	err := cs.run(ctx, chromedp.Evaluate(fmt.Sprintf("!!document.querySelector(%q)", selector), &exists))
	return exists, err
}

func (cs *ChromeSurface) Fill(ctx context.Context, selector, value string) error {
	return cs.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (cs *ChromeSurface) PressTab(ctx context.Context) error {
	return cs.run(ctx, chromedp.KeyEvent(kb.Tab))
}

func (cs *ChromeSurface) PressEnter(ctx context.Context) error {
	return cs.run(ctx, chromedp.KeyEvent(kb.Enter))
}

func (cs *ChromeSurface) ActiveElementText(ctx context.Context) (string, error) {
	var text string
	err := cs.run(ctx, chromedp.Evaluate(
		"document.activeElement ? (document.activeElement.innerText || '') : ''", &text))
	return text, err
}

func (cs *ChromeSurface) Settle(ctx context.Context, d time.Duration) {
	settle(ctx, d)
}

func (cs *ChromeSurface) Close() {
	cs.cancel()
	cs.allocCancel()
}
