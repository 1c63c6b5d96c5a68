package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/robfig/cron"
)

const (
	// DefaultStorageDir is the default directory holding bare repositories.
	DefaultStorageDir = "./data/repos"
	// DefaultHTTPPort is the default HTTP listen port.
	DefaultHTTPPort = "8080"
	// DefaultInitialBranch is the branch HEAD points to in new repositories.
	DefaultInitialBranch = "main"
	// DefaultMaxPreviewBytes is the largest blob rendered inline.
	DefaultMaxPreviewBytes int64 = 1 << 20
	// DefaultInventorySchedule is the cron spec of the storage inventory scan.
	DefaultInventorySchedule = "@every 5m"
	// DefaultNotificationTitle is the title of push notifications.
	DefaultNotificationTitle = "minigit"
)

var (
	errEmptyStorageDir     = errors.New("storage directory must not be empty")
	errInvalidPort         = errors.New("invalid http port")
	errEmptyInitialBranch  = errors.New("initial branch must not be empty")
	errInvalidPreviewLimit = errors.New("max preview bytes must be positive")
	errIncompleteAuth      = errors.New("auth user and password must be set together")
	errInvalidSchedule     = errors.New("invalid inventory schedule")
)

// Config is the validated server configuration.
type Config struct {
	StorageDir        string   // Root directory of bare repositories.
	HTTPHost          string   // Listen host, empty for all interfaces.
	HTTPPort          string   // Listen port.
	AuthUser          string   // Basic auth user, empty disables auth.
	AuthPass          string   // Basic auth password.
	InitialBranch     string   // HEAD target of new repositories.
	PreferredBranches []string // Default branch candidates in order.
	MaxPreviewBytes   int64    // Inline preview limit.
	AllowPush         bool     // Whether git-receive-pack is served.
	InventorySchedule string   // Cron spec for the inventory scan, empty disables it.
	NotificationURLs  []string // shoutrrr service URLs.
	NotificationTitle string   // Title of push notifications.
	NotificationTpl   string   // Template of push notifications.
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		StorageDir:        DefaultStorageDir,
		HTTPPort:          DefaultHTTPPort,
		InitialBranch:     DefaultInitialBranch,
		PreferredBranches: []string{"main", "master"},
		MaxPreviewBytes:   DefaultMaxPreviewBytes,
		AllowPush:         true,
		InventorySchedule: DefaultInventorySchedule,
		NotificationTitle: DefaultNotificationTitle,
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StorageDir) == "" {
		return errEmptyStorageDir
	}

	port, err := strconv.Atoi(c.HTTPPort)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.HTTPPort)
	}

	if strings.TrimSpace(c.InitialBranch) == "" {
		return errEmptyInitialBranch
	}

	if c.MaxPreviewBytes <= 0 {
		return fmt.Errorf("%w: %d", errInvalidPreviewLimit, c.MaxPreviewBytes)
	}

	if (c.AuthUser == "") != (c.AuthPass == "") {
		return errIncompleteAuth
	}

	if c.InventorySchedule != "" {
		if _, err := cron.Parse(c.InventorySchedule); err != nil {
			return fmt.Errorf("%w: %w", errInvalidSchedule, err)
		}
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, c.HTTPPort)
}

// AuthEnabled reports whether HTTP Basic authentication is configured.
func (c Config) AuthEnabled() bool {
	return c.AuthUser != ""
}
