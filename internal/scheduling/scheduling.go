// Package scheduling runs the periodic storage inventory of a minigit server.
// It scans the repository root on a cron schedule, publishes the totals to metrics,
// and shuts down gracefully on interrupt signals or context cancellation.
package scheduling

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/metrics"
)

// InventorySource lists repositories and measures their size on disk.
type InventorySource interface {
	List() ([]string, error)
	Size(name string) (int64, error)
}

// InventoryRecorder receives the outcome of each scan. A nil inventory marks a failed scan.
type InventoryRecorder interface {
	RegisterInventory(inventory *metrics.Inventory)
}

// ScanInventory counts the repositories of source and sums their sizes.
// Repositories whose size cannot be read are logged and skipped.
//
// Parameters:
//   - source: Repository listing and sizing.
//
// Returns:
//   - *metrics.Inventory: Totals of the scan.
//   - error: Non-nil if the repositories cannot be listed.
func ScanInventory(source InventorySource) (*metrics.Inventory, error) {
	names, err := source.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	inventory := &metrics.Inventory{Repositories: len(names)}

	for _, name := range names {
		size, err := source.Size(name)
		if err != nil {
			logrus.WithError(err).WithField("repository", name).Warn("Failed to measure repository")

			continue
		}

		inventory.Bytes += size
	}

	return inventory, nil
}

// ScanAndRecord runs ScanInventory and hands the result to recorder. A failed
// scan is recorded as nil.
//
// Returns:
//   - *metrics.Inventory: Totals of the scan.
//   - error: Non-nil if the repositories cannot be listed.
func ScanAndRecord(source InventorySource, recorder InventoryRecorder) (*metrics.Inventory, error) {
	inventory, err := ScanInventory(source)
	if err != nil {
		recorder.RegisterInventory(nil)

		return nil, err
	}

	recorder.RegisterInventory(inventory)
	logrus.WithFields(logrus.Fields{
		"repositories": inventory.Repositories,
		"bytes":        inventory.Bytes,
	}).Debug("Inventory scan completed")

	return inventory, nil
}

// WaitForRunningScan waits for a scan in progress to complete before shutdown.
//
// Parameters:
//   - ctx: Context allowing the wait to be abandoned early.
//   - lock: Channel holding a token while no scan runs.
func WaitForRunningScan(ctx context.Context, lock chan bool) {
	const scanWaitTimeout = 60 * time.Second

	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) == 0 {
		select {
		case <-lock:
			logrus.Debug("Lock acquired, scan finished.")
		case <-time.After(scanWaitTimeout):
			logrus.Warn("Timeout waiting for running scan to finish, proceeding with shutdown.")
		case <-ctx.Done():
			logrus.Warn("Context cancelled while waiting for running scan.")
		}
	} else {
		logrus.Debug("No scan running, lock available.")
	}
}

// RunInventoryOnSchedule scans storage immediately and then on the cron schedule
// until ctx is cancelled or the process receives SIGINT or SIGTERM.
//
// Parameters:
//   - ctx: Context controlling the scheduler's lifecycle.
//   - scheduleSpec: Cron spec of the scan. An empty spec only runs the initial scan.
//   - source: Repository listing and sizing.
//   - recorder: Receives each scan result.
//   - lock: Channel ensuring only one scan runs at a time, or nil to create one.
//   - onStart: Called with the first scheduled run time (zero if unscheduled). May be nil.
//
// Returns:
//   - error: Non-nil if the schedule is invalid, nil on shutdown.
func RunInventoryOnSchedule(
	ctx context.Context,
	scheduleSpec string,
	source InventorySource,
	recorder InventoryRecorder,
	lock chan bool,
	onStart func(next time.Time),
) error {
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true
	}

	scheduler := cron.New()

	scanFunc := func() {
		select {
		case v := <-lock:
			defer func() { lock <- v }()

			if _, err := ScanAndRecord(source, recorder); err != nil {
				logrus.WithError(err).Error("Inventory scan failed")

				return
			}
		default:
			logrus.Debug("Skipped inventory scan, another scan is already running.")
		}

		if entries := scheduler.Entries(); len(entries) > 0 {
			logrus.Debug("Scheduled next scan: " + entries[0].Next.String())
		}
	}

	if scheduleSpec != "" {
		if err := scheduler.AddFunc(scheduleSpec, scanFunc); err != nil {
			return fmt.Errorf("failed to schedule inventory scans: %w", err)
		}
	}

	var nextRun time.Time
	if entries := scheduler.Entries(); len(entries) > 0 {
		nextRun = entries[0].Schedule.Next(time.Now())
	}

	if onStart != nil {
		onStart(nextRun)
	}

	scanFunc()
	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler...")
	case <-interrupt:
		logrus.Debug("Received interrupt signal, stopping scheduler...")
	}

	scheduler.Stop()
	logrus.Debug("Waiting for running scan to be finished...")

	WaitForRunningScan(ctx, lock)

	logrus.Debug("Scheduler stopped.")

	return nil
}
