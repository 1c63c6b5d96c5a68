// Package logging writes the startup summary of a minigit server.
// It reports the version, storage, HTTP listener, authentication, notification and
// inventory schedule settings.
package logging

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/config"
)

// WriteStartupMessage logs the startup summary.
//
// Parameters:
//   - cfg: Server configuration.
//   - nextScan: Time of the first scheduled inventory scan, or zero if scans are not scheduled.
//   - notifierNames: Names of the configured notification services.
//   - version: minigit version.
func WriteStartupMessage(cfg config.Config, nextScan time.Time, notifierNames []string, version string) {
	log := logrus.NewEntry(logrus.StandardLogger())

	log.WithFields(logrus.Fields{
		"storage": cfg.StorageDir,
		"addr":    cfg.Addr(),
	}).Info("minigit ", version)

	if cfg.AuthEnabled() {
		log.WithField("user", cfg.AuthUser).Info("HTTP Basic authentication is enabled")
	} else {
		log.Warn("HTTP Basic authentication is disabled, all clients are anonymous")
	}

	if !cfg.AllowPush {
		log.Info("Pushing is disabled, repositories are served read-only")
	}

	LogNotifierInfo(log, notifierNames)
	LogScheduleInfo(log, nextScan)

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		log.Warn("Trace level enabled: log will include sensitive information as credentials and tokens")
	}
}

// LogNotifierInfo logs the configured notification services.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogScheduleInfo logs when the next inventory scan runs.
func LogScheduleInfo(log *logrus.Entry, nextScan time.Time) {
	if nextScan.IsZero() {
		log.Info("Periodic inventory scans are disabled")

		return
	}

	log.Info("Scheduling next inventory scan: " + nextScan.Format("2006-01-02 15:04:05 -0700 MST"))
	log.Info("Note that the next scan will be performed " + humanize.Time(nextScan))
}
