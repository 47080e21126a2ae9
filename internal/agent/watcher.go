// internal/agent/watcher.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/farmahub/farmahub-backend/internal/config"
)

// State is what the agent remembers between cycles.
type State struct {
	LastModTime time.Time
}

// Report summarizes one cycle.
type Report struct {
	Changed   bool
	Delivered bool
	ModTime   time.Time
	Parsed    int
	Skipped   []RowError
	Result    *DeliveryResult
}

// Watcher polls an ERP export file and ships it whenever its modification
// time moves forward.
type Watcher struct {
	fs          FileSystem
	deliverer   Deliverer
	sourcePath  string
	scratchDir  string
	delimiter   rune
	interval    time.Duration
	settleDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewWatcher(cfg *config.AgentConfig, fs FileSystem, deliverer Deliverer) *Watcher {
	var delimiter rune
	if cfg.Delimiter != "" {
		delimiter, _ = utf8.DecodeRuneInString(cfg.Delimiter)
	}

	return &Watcher{
		fs:          fs,
		deliverer:   deliverer,
		sourcePath:  cfg.SourcePath,
		scratchDir:  cfg.ScratchDir,
		delimiter:   delimiter,
		interval:    cfg.PollInterval,
		settleDelay: cfg.SettleDelay,
		sleep:       sleepContext,
	}
}

// SetSleep replaces the wait used for the settle delay.
func (w *Watcher) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	w.sleep = fn
}

// Run polls until ctx is done. Cycle errors are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context, state State) State {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"source":   w.sourcePath,
		"interval": w.interval.String(),
	}).Info("Agent watching stock file")

	for {
		var err error
		var report Report
		state, report, err = w.Poll(ctx, state)
		logCycle(report, err)

		select {
		case <-ctx.Done():
			return state
		case <-ticker.C:
		}
	}
}

// Poll runs one cycle. The returned state only advances when the file was
// consumed: delivered, rejected by the server or unusable as an export.
// Connectivity failures and unreadable sources keep the old state so the next
// cycle tries again.
func (w *Watcher) Poll(ctx context.Context, state State) (State, Report, error) {
	info, err := w.fs.Stat(w.sourcePath)
	if err != nil {
		return state, Report{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if !info.ModTime().After(state.LastModTime) {
		return state, Report{}, nil
	}

	// Give the ERP time to finish writing before the file is sampled.
	if w.settleDelay > 0 {
		if err := w.sleep(ctx, w.settleDelay); err != nil {
			return state, Report{}, err
		}
		if info, err = w.fs.Stat(w.sourcePath); err != nil {
			return state, Report{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
	}

	report := Report{Changed: true, ModTime: info.ModTime()}
	consumed := State{LastModTime: info.ModTime()}

	scratch, err := w.copyToScratch()
	if err != nil {
		return state, report, err
	}
	defer func() {
		scratch.Close()
		os.Remove(scratch.Name())
	}()

	items, skipped, err := ParseCSV(scratch, w.delimiter)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return state, report, err
		}
		return consumed, report, err
	}
	report.Parsed = len(items)
	report.Skipped = skipped

	// An empty batch would wipe the pharmacy's stock under replace mode.
	if len(items) == 0 {
		return consumed, report, ErrNoValidRows
	}

	result, err := w.deliverer.Deliver(ctx, items)
	if err != nil {
		var connErr *ConnectivityError
		if errors.As(err, &connErr) {
			return state, report, err
		}
		return consumed, report, err
	}

	report.Delivered = true
	report.Result = result
	return consumed, report, nil
}

// copyToScratch snapshots the source into a private temp file so the ERP can
// keep writing while the copy is parsed.
func (w *Watcher) copyToScratch() (*os.File, error) {
	src, err := w.fs.Open(w.sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer src.Close()

	scratch, err := os.CreateTemp(w.scratchDir, "farmahub-stock-*.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}

	if _, err := io.Copy(scratch, src); err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return nil, fmt.Errorf("failed to rewind scratch file: %w", err)
	}

	return scratch, nil
}

func logCycle(report Report, err error) {
	fields := logrus.Fields{
		"parsed":  report.Parsed,
		"skipped": len(report.Skipped),
	}
	if !report.ModTime.IsZero() {
		fields["mod_time"] = report.ModTime.Format(time.RFC3339)
	}

	for _, row := range report.Skipped {
		logrus.WithFields(logrus.Fields{
			"line":   row.Line,
			"ean":    row.EAN,
			"reason": row.Reason,
		}).Warn("Skipped stock row")
	}

	var connErr *ConnectivityError
	var rejected *RejectedError
	switch {
	case err == nil && report.Delivered:
		fields["written"] = report.Result.Written
		fields["server_skipped"] = report.Result.Skipped
		logrus.WithFields(fields).Info("Stock delivered")
	case err == nil:
		logrus.Debug("Stock file unchanged")
	case errors.As(err, &connErr):
		logrus.WithFields(fields).WithError(err).Warn("API unreachable; will retry on next cycle")
	case errors.As(err, &rejected):
		logrus.WithFields(fields).WithError(err).Error("API rejected stock batch")
	case errors.Is(err, ErrSourceUnavailable):
		logrus.WithFields(fields).WithError(err).Warn("Stock file unavailable; will retry on next cycle")
	case errors.Is(err, context.Canceled):
	default:
		logrus.WithFields(fields).WithError(err).Error("Stock cycle failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
