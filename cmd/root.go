package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/minigit/internal/api"
	"github.com/nicholas-fedor/minigit/internal/flags"
	"github.com/nicholas-fedor/minigit/internal/logging"
	"github.com/nicholas-fedor/minigit/internal/meta"
	"github.com/nicholas-fedor/minigit/internal/scheduling"
	"github.com/nicholas-fedor/minigit/pkg/access"
	"github.com/nicholas-fedor/minigit/pkg/browse"
	"github.com/nicholas-fedor/minigit/pkg/config"
	"github.com/nicholas-fedor/minigit/pkg/content"
	"github.com/nicholas-fedor/minigit/pkg/git"
	"github.com/nicholas-fedor/minigit/pkg/metrics"
	"github.com/nicholas-fedor/minigit/pkg/notifications"
	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

// errStorageUnavailable indicates the storage directory could not be prepared.
var errStorageUnavailable = errors.New("storage directory is unavailable")

// rootCmd is the minigit CLI. Running it without a subcommand starts the server.
var rootCmd = NewRootCommand()

// NewRootCommand creates the root command with its flags and subcommands.
//
// Returns:
//   - *cobra.Command: Command that serves repositories when run without a subcommand.
func NewRootCommand() *cobra.Command {
	flags.SetDefaults()

	cmd := &cobra.Command{
		Use:   "minigit",
		Short: "Hosts bare git repositories over HTTP",
		Long: "\nminigit hosts bare git repositories. Clients clone and push over the smart HTTP protocol," +
			"\nwhile a JSON API lists branches, commits, directories and file previews.",
		Run:              run,
		PersistentPreRun: preRun,
		Args:             cobra.NoArgs,
	}

	flags.RegisterSystemFlags(cmd)
	flags.RegisterNotificationFlags(cmd)

	cmd.AddCommand(newRepoCommand())

	return cmd
}

// Execute runs the root command and exits on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute root command")
	}
}

// preRun loads the configuration file, applies flag aliases, configures
// logging and resolves secrets stored in files. It runs before every command.
func preRun(cmd *cobra.Command, _ []string) {
	root := cmd.Root()
	flagsSet := root.PersistentFlags()

	if err := flags.LoadConfigFile(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration file")
	}

	flags.ProcessFlagAliases(flagsSet)

	if err := flags.SetupLogging(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	if err := flags.GetSecretsFromFiles(root); err != nil {
		logrus.WithError(err).Fatal("Failed to read secrets from files")
	}
}

// run starts the server and exits with a non-zero status if it fails.
func run(c *cobra.Command, _ []string) {
	cfg, err := flags.ReadConfig(c.Root())
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	if exitCode := runMain(context.Background(), cfg); exitCode != 0 {
		logrus.WithField("exit_code", exitCode).Debug("Exiting with non-zero status")
		os.Exit(exitCode)
	}
}

// server bundles the collaborators a running instance owns.
type server struct {
	services api.Services
	notifier *notifications.Notifier
	metrics  *metrics.Metrics
	scanLock chan bool // Shared by scheduled and on-demand inventory scans.
}

// newServer wires storage, browsing, auditing, metrics and notifications.
//
// Parameters:
//   - cfg: Validated configuration.
//   - m: Metrics collector receiving audit events and inventory scans.
//
// Returns:
//   - *server: Wired server. Close must be called when it stops.
//   - error: Non-nil if storage cannot be prepared or notifications cannot be set up.
func newServer(cfg config.Config, m *metrics.Metrics) (*server, error) {
	manager := repository.NewManager(cfg.StorageDir, cfg.InitialBranch, git.NewStore())
	if err := manager.EnsureRoot(); err != nil {
		return nil, fmt.Errorf("%w: %w", errStorageUnavailable, err)
	}

	srv := &server{metrics: m, scanLock: make(chan bool, 1)}
	srv.scanLock <- true

	var pushSinks []types.AuditSink

	if len(cfg.NotificationURLs) > 0 {
		notifier, err := notifications.NewNotifier(cfg.NotificationURLs, cfg.NotificationTitle, cfg.NotificationTpl)
		if err != nil {
			return nil, fmt.Errorf("failed to set up notifications: %w", err)
		}

		srv.notifier = notifier
		pushSinks = append(pushSinks, notifier)
	}

	auditor := access.NewAuditor(access.WithSinks(m))

	srv.services = api.Services{
		Config:     cfg,
		Manager:    manager,
		Browser:    browse.NewService(manager, cfg.PreferredBranches),
		Resolver:   access.NewResolver(manager, auditor),
		Classifier: content.New(content.DefaultTables(), cfg.MaxPreviewBytes),
		PushSinks:  pushSinks,
		Version:    meta.Version,
		Inventory:  m,
		ScanLock:   srv.scanLock,
	}

	return srv, nil
}

// notifierNames lists the configured notification services.
func (s *server) notifierNames() []string {
	if s.notifier == nil {
		return nil
	}

	return s.notifier.GetNames()
}

// Close flushes pending notifications.
func (s *server) Close() {
	if s.notifier != nil {
		s.notifier.Close()
	}
}

// runMain serves the HTTP API and runs inventory scans until ctx is cancelled
// or the process is interrupted.
//
// Parameters:
//   - ctx: Context controlling the server's lifecycle.
//   - cfg: Validated configuration.
//
// Returns:
//   - int: Exit code, 0 on a clean shutdown and 1 on failure.
func runMain(ctx context.Context, cfg config.Config) int {
	srv, err := newServer(cfg, metrics.Default())
	if err != nil {
		logrus.WithError(err).Error("Failed to start minigit")

		return 1
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiErr := make(chan error, 1)

	go func() {
		// A failing listener stops the scheduler too.
		defer cancel()

		apiErr <- api.SetupAndStartAPI(ctx, srv.services)
	}()

	schedErr := scheduling.RunInventoryOnSchedule(
		ctx,
		cfg.InventorySchedule,
		srv.services.Manager,
		srv.metrics,
		srv.scanLock,
		func(next time.Time) {
			logging.WriteStartupMessage(cfg, next, srv.notifierNames(), meta.Version)
		},
	)
	if schedErr != nil {
		logrus.WithError(schedErr).Error("Failed to run inventory scans")
	}

	cancel()

	if err := <-apiErr; err != nil || schedErr != nil {
		return 1
	}

	logrus.Info("minigit stopped")

	return 0
}
