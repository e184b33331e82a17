package harvester

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	mostRecentLabel = "most recent"
	maxFocusMoves   = 12
	menuSettle      = 400 * time.Millisecond
	optionSettle    = 600 * time.Millisecond
)

// sortTriggerSelectors describe the comment sort/filter control in priority
// order. The first one present on the page wins.
var sortTriggerSelectors = []string{
	"button[aria-label*='Sort comments']",
	"button.comments-sort-order-toggle__trigger",
	".comments-sort-order-toggle button",
	"button[aria-expanded][class*='sort']",
}

// TrySetMostRecent attempts to switch the comment ordering to "Most recent".
// Best effort, single pass: every step swallows its own failures and the next
// step still runs. The return value is a confidence signal from the final
// verification read-back, not a guarantee.
func TrySetMostRecent(ctx context.Context, surface Surface, logger *logrus.Logger) bool {
	// Step 1: locate the trigger control.
	trigger := ""
	for _, sel := range sortTriggerSelectors {
		if ok, err := surface.Exists(ctx, sel); err == nil && ok {
			trigger = sel
			break
		}
	}

	selected := false
	if trigger != "" {
		// Step 2: open it, falling back to a programmatic click.
		if err := surface.Click(ctx, trigger); err != nil {
			logger.Debugf("Direct click on sort control failed: %v", err)
			if _, err := surface.ClickScript(ctx, trigger); err != nil {
				logger.Debugf("Scripted click on sort control failed: %v", err)
			}
		}
		surface.Settle(ctx, menuSettle)

		// Step 3: pick the option by its exact label.
		if ok, err := surface.ClickExactText(ctx, mostRecentLabel); err == nil && ok {
			selected = true
			surface.Settle(ctx, optionSettle)
		} else if err != nil {
			logger.Debugf("Option click failed: %v", err)
		}
	}

	// Step 4: keyboard fallback, walking focus forward looking for the label.
	if !selected {
		for i := 0; i < maxFocusMoves; i++ {
			if err := surface.PressTab(ctx); err != nil {
				logger.Debugf("Tab press failed: %v", err)
				break
			}
			text, err := surface.ActiveElementText(ctx)
			if err != nil {
				continue
			}
			if strings.Contains(strings.ToLower(text), mostRecentLabel) {
				if err := surface.PressEnter(ctx); err != nil {
					logger.Debugf("Enter press failed: %v", err)
				}
				surface.Settle(ctx, optionSettle)
				selected = true
				break
			}
		}
		if !selected {
			if ok, err := surface.ClickExactText(ctx, mostRecentLabel); err == nil && ok {
				surface.Settle(ctx, optionSettle)
				selected = true
			}
		}
	}

	// Step 5: verify via the trigger's current text, then via a final
	// exact-label existence check on the page snapshot.
	for _, sel := range sortTriggerSelectors {
		text, err := surface.ElementText(ctx, sel)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(text), "recent") {
			return true
		}
	}

	html, err := surface.HTML(ctx)
	if err != nil {
		logger.Debugf("Snapshot read for sort verification failed: %v", err)
		return false
	}
	doc, err := ParseSnapshot(html)
	if err != nil {
		return false
	}
	return containsExactText(doc, mostRecentLabel)
}
