package harvester

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-harvester/pkg/types"
)

// loadMoreTokens select the "load more comments" style buttons clicked each
// iteration to force lazy comment batches onto the page.
var loadMoreTokens = []string{"more", "comment"}

// ContactArchive is an optional secondary sink for harvested contacts
// (the Postgres archive implements it). Archive failures never affect a run.
type ContactArchive interface {
	SaveContacts(runID string, records []types.ContactRecord) error
}

// Request describes one harvesting invocation. Credentials are optional;
// login is attempted only when both are present.
type Request struct {
	RunID    string
	PostURL  string
	Email    string
	Password string
}

// Harvester runs the incremental comment-email extraction loop against a
// single post URL. One Harvester may serve many runs; each run owns its own
// browser session and ResultStore.
type Harvester struct {
	cfg        types.HarvestConfig
	logger     *logrus.Logger
	archive    ContactArchive
	newSurface SurfaceFactory
}

func New(cfg types.HarvestConfig, logger *logrus.Logger) *Harvester {
	return &Harvester{
		cfg:        cfg,
		logger:     logger,
		newSurface: ResolveSurface,
	}
}

// WithArchive attaches a secondary contact sink.
func (h *Harvester) WithArchive(archive ContactArchive) *Harvester {
	h.archive = archive
	return h
}

// Run executes one harvesting run. The returned RunResult is always non-nil;
// err is non-nil only for the two fatal classes (session acquisition and
// target navigation), in which case RunResult.Error carries the same message.
// Everything that goes wrong inside the loop only degrades completeness.
func (h *Harvester) Run(ctx context.Context, req Request) (*types.RunResult, error) {
	start := time.Now()
	store := NewResultStore(req.RunID, h.cfg.ResultsDir)

	result := &types.RunResult{
		RunID:      req.RunID,
		ResultFile: store.Path(),
	}

	surface, err := h.newSurface(ctx, h.cfg, h.logger)
	if err != nil {
		err = fmt.Errorf("session acquisition failed: %w", err)
		result.Error = err.Error()
		return result, err
	}
	defer surface.Close()

	if req.Email != "" && req.Password != "" {
		h.logger.Info("Attempting login with provided credentials")
		TryLogin(ctx, surface, h.cfg.LoginURL, req.Email, req.Password, h.logger)
	} else {
		h.logger.Info("No credentials provided; proceeding anonymously")
	}

	h.logger.Infof("Opening post URL: %s", req.PostURL)
	if err := surface.Navigate(ctx, req.PostURL); err != nil {
		err = fmt.Errorf("failed to open post URL: %w", err)
		result.Error = err.Error()
		return result, err
	}
	surface.Settle(ctx, h.cfg.SettleInterval)

	if TrySetMostRecent(ctx, surface, h.logger) {
		h.logger.Info("Comment ordering set to 'Most recent'")
	} else {
		h.logger.Info("Could not confirm 'Most recent' ordering, continuing anyway")
	}

	lastProgress := time.Now()
	for {
		if ctx.Err() != nil {
			h.logger.Info("Run cancelled, ending extraction loop")
			break
		}
		if time.Since(start) >= h.cfg.MaxRunDuration {
			h.logger.Info("Max run duration reached, ending extraction loop")
			break
		}

		h.triggerLazyLoad(ctx, surface)
		surface.Settle(ctx, h.cfg.SettleInterval)

		delta := h.collect(ctx, surface, store)
		if len(delta) > 0 {
			lastProgress = time.Now()
			h.logger.Infof("New contacts found: %d (total %d)", len(delta), store.Len())
		}

		if time.Since(lastProgress) >= h.cfg.InactivityTimeout {
			h.logger.Infof("No new contacts for %s, ending extraction loop", h.cfg.InactivityTimeout)
			break
		}
		if time.Since(start) >= h.cfg.MaxRunDuration {
			h.logger.Info("Max run duration reached, ending extraction loop")
			break
		}
	}

	// One last pass catches comments rendered just before the stop decision.
	if delta := h.collect(ctx, surface, store); len(delta) > 0 {
		h.logger.Infof("Final pass found %d more contacts", len(delta))
	}

	result.EmailsFound = store.Len()
	result.ElapsedSeconds = roundSeconds(time.Since(start))
	h.logger.Infof("Run %s finished: %d contacts in %.2fs", req.RunID, result.EmailsFound, result.ElapsedSeconds)
	return result, nil
}

// triggerLazyLoad advances the page to force lazily rendered comments:
// scroll steps plus a best-effort click of any "load more comments" button.
// Each trigger failure is ignored.
func (h *Harvester) triggerLazyLoad(ctx context.Context, surface Surface) {
	steps := h.cfg.ScrollSteps
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		if err := surface.ScrollBy(ctx, h.cfg.ScrollStepPixels); err != nil {
			h.logger.Debugf("Scroll failed: %v", err)
		}
	}

	clicked, err := surface.ClickButtonsContaining(ctx, loadMoreTokens...)
	if err != nil {
		h.logger.Debugf("Load-more click scan failed: %v", err)
	} else if clicked > 0 {
		h.logger.Infof("Clicked %d 'load more comments' button(s)", clicked)
		surface.Settle(ctx, h.cfg.SettleInterval)
	}
}

// collect runs one scan pass: locate comment candidates on the current
// snapshot, extract emails from their bodies, fall back to a whole-page text
// scan when no candidate was located, and persist whatever is new.
func (h *Harvester) collect(ctx context.Context, surface Surface, store *ResultStore) []types.ContactRecord {
	var records []types.ContactRecord

	var candidates []Candidate
	if html, err := surface.HTML(ctx); err != nil {
		h.logger.Debugf("Snapshot read failed: %v", err)
	} else if doc, err := ParseSnapshot(html); err != nil {
		h.logger.Debugf("Snapshot parse failed: %v", err)
	} else {
		candidates = LocateCandidates(doc)
	}

	if len(candidates) == 0 {
		if body, err := surface.BodyText(ctx); err != nil {
			h.logger.Debugf("Body text fallback failed: %v", err)
		} else {
			for _, email := range ExtractEmails(body) {
				records = append(records, types.ContactRecord{DisplayName: types.UnknownName, Email: email})
			}
		}
	} else {
		for _, cand := range candidates {
			name := cand.Name
			if name == "" {
				name = types.UnknownName
			}
			for _, email := range ExtractEmails(cand.Body) {
				records = append(records, types.ContactRecord{DisplayName: name, Email: email})
			}
		}
	}

	delta := store.Add(records...)
	if len(delta) == 0 {
		return nil
	}

	if err := store.Flush(delta); err != nil {
		h.logger.Errorf("Failed to persist %d contacts: %v", len(delta), err)
	}
	if h.archive != nil {
		if err := h.archive.SaveContacts(store.runID, delta); err != nil {
			h.logger.Warnf("Failed to archive %d contacts: %v", len(delta), err)
		}
	}
	return delta
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000.0
}
