package harvester

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin-harvester/pkg/types"
)

func testHarvestConfig(t *testing.T) types.HarvestConfig {
	return types.HarvestConfig{
		Headless:          true,
		ActionTimeout:     time.Second,
		MaxRunDuration:    5 * time.Second,
		InactivityTimeout: 25 * time.Millisecond,
		ScrollSteps:       1,
		ScrollStepPixels:  800,
		SettleInterval:    0,
		ResultsDir:        t.TempDir(),
		LoginURL:          "https://example.test/login",
	}
}

func newTestHarvester(cfg types.HarvestConfig, fs *fakeSurface) *Harvester {
	h := New(cfg, testLogger())
	h.newSurface = func(ctx context.Context, _ types.HarvestConfig, _ *logrus.Logger) (Surface, error) {
		return fs, nil
	}
	return h
}

type fakeArchive struct {
	runIDs []string
	saved  []types.ContactRecord
	err    error
}

func (fa *fakeArchive) SaveContacts(runID string, records []types.ContactRecord) error {
	fa.runIDs = append(fa.runIDs, runID)
	fa.saved = append(fa.saved, records...)
	return fa.err
}

func TestRunDeduplicatesAcrossIterations(t *testing.T) {
	fs := newFakeSurface()
	// The same comment stays on the page for the whole run; it must yield
	// exactly one record no matter how many scan passes see it.
	fs.htmlFunc = func(int) string { return commentItemHTML }

	cfg := testHarvestConfig(t)
	h := newTestHarvester(cfg, fs)

	result, err := h.Run(context.Background(), Request{RunID: "dedup", PostURL: "https://example.test/post"})
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	assert.Equal(t, 1, result.EmailsFound)

	records, err := ReadResultFile(result.ResultFile)
	require.NoError(t, err)
	assert.Equal(t, []types.ContactRecord{{DisplayName: "Jane Doe", Email: "jane@corp.example"}}, records)

	assert.True(t, fs.closed)
	assert.Greater(t, fs.scrolls, 0)
}

func TestRunWholePageFallback(t *testing.T) {
	fs := newFakeSurface()
	// No comment-like container is ever located, so the whole-page text scan
	// supplies the records under the unknown name.
	fs.bodyText = "Loading comments... contact me: fallback@site.io"

	cfg := testHarvestConfig(t)
	h := newTestHarvester(cfg, fs)

	result, err := h.Run(context.Background(), Request{RunID: "fallback", PostURL: "https://example.test/post"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.EmailsFound)

	records, err := ReadResultFile(result.ResultFile)
	require.NoError(t, err)
	assert.Equal(t, []types.ContactRecord{{DisplayName: types.UnknownName, Email: "fallback@site.io"}}, records)
}

func TestRunStopsAtMaxDuration(t *testing.T) {
	fs := newFakeSurface()
	// Every snapshot carries a fresh email, so inactivity never triggers and
	// only the duration ceiling can end the run.
	fs.htmlFunc = func(call int) string {
		return fmt.Sprintf(`<html><body><div class="comment">u%d@ex.com</div></body></html>`, call)
	}

	cfg := testHarvestConfig(t)
	cfg.MaxRunDuration = 40 * time.Millisecond
	cfg.InactivityTimeout = 10 * time.Second
	h := newTestHarvester(cfg, fs)

	start := time.Now()
	result, err := h.Run(context.Background(), Request{RunID: "ceiling", PostURL: "https://example.test/post"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.GreaterOrEqual(t, result.EmailsFound, 1)
}

func TestRunNavigationFailure(t *testing.T) {
	fs := newFakeSurface()
	fs.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	cfg := testHarvestConfig(t)
	h := newTestHarvester(cfg, fs)

	result, err := h.Run(context.Background(), Request{RunID: "navfail", PostURL: "https://bad.invalid/post"})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Error, "failed to open post URL")
	assert.Zero(t, result.EmailsFound)

	// Nothing was found, so the sink file was never created.
	_, statErr := os.Stat(result.ResultFile)
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, fs.closed)
}

func TestRunSessionAcquisitionFailure(t *testing.T) {
	cfg := testHarvestConfig(t)
	h := New(cfg, testLogger())
	h.newSurface = func(context.Context, types.HarvestConfig, *logrus.Logger) (Surface, error) {
		return nil, ErrSessionAcquisition
	}

	result, err := h.Run(context.Background(), Request{RunID: "nosession", PostURL: "https://example.test/post"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionAcquisition))
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Error)
	assert.Zero(t, result.EmailsFound)
}

func TestRunLoginBestEffort(t *testing.T) {
	fs := newFakeSurface()
	cfg := testHarvestConfig(t)
	h := newTestHarvester(cfg, fs)

	_, err := h.Run(context.Background(), Request{
		RunID:    "login",
		PostURL:  "https://example.test/post",
		Email:    "user@example.test",
		Password: "hunter2",
	})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(fs.navigated), 2)
	assert.Equal(t, cfg.LoginURL, fs.navigated[0])
	assert.Equal(t, "https://example.test/post", fs.navigated[1])
	assert.Equal(t, "user@example.test", fs.filled["input#username"])
	assert.Equal(t, "hunter2", fs.filled["input#password"])
	assert.GreaterOrEqual(t, fs.enterPresses, 1)
}

func TestRunLoginFallbackFields(t *testing.T) {
	fs := newFakeSurface()
	fs.fillErrs["input#username"] = errors.New("no such element")

	cfg := testHarvestConfig(t)
	h := newTestHarvester(cfg, fs)

	result, err := h.Run(context.Background(), Request{
		RunID:    "login-alt",
		PostURL:  "https://example.test/post",
		Email:    "user@example.test",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	assert.Equal(t, "user@example.test", fs.filled["input[name='session_key']"])
	assert.Equal(t, "hunter2", fs.filled["input[name='session_password']"])
}

func TestRunCooperativeCancellation(t *testing.T) {
	fs := newFakeSurface()
	fs.htmlFunc = func(int) string { return commentItemHTML }

	cfg := testHarvestConfig(t)
	cfg.MaxRunDuration = time.Hour
	cfg.InactivityTimeout = time.Hour
	h := newTestHarvester(cfg, fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.Run(ctx, Request{RunID: "cancelled", PostURL: "https://example.test/post"})
	require.NoError(t, err)
	// The loop never iterated, but the final pass still collected what the
	// page already showed.
	assert.Zero(t, fs.scrolls)
	assert.Equal(t, 1, result.EmailsFound)
}

func TestRunArchivesContacts(t *testing.T) {
	fs := newFakeSurface()
	fs.htmlFunc = func(int) string { return commentItemHTML }

	archive := &fakeArchive{err: errors.New("db down")}
	cfg := testHarvestConfig(t)
	h := newTestHarvester(cfg, fs).WithArchive(archive)

	// Archive failures degrade nothing.
	result, err := h.Run(context.Background(), Request{RunID: "archived", PostURL: "https://example.test/post"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.EmailsFound)

	require.NotEmpty(t, archive.runIDs)
	assert.Equal(t, "archived", archive.runIDs[0])
	assert.Equal(t, []types.ContactRecord{{DisplayName: "Jane Doe", Email: "jane@corp.example"}}, archive.saved)
}
