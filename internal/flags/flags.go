package flags

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/minigit/pkg/config"
)

// errInvalidLogFormat indicates an invalid log format was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errOpenFileFailed indicates a failure to open a file for reading secrets.
var errOpenFileFailed = errors.New("failed to open secret file")

// errCloseFileFailed indicates a failure to close a file after reading secrets.
var errCloseFileFailed = errors.New("failed to close secret file")

// errReplaceSliceFailed indicates a failure to replace a slice value in a flag.
var errReplaceSliceFailed = errors.New("failed to replace slice value in flag")

// errReadFileFailed indicates a failure to read a file’s contents.
var errReadFileFailed = errors.New("failed to read secret file")

// errSetFlagFailed indicates a failure to read or set a flag’s value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errReadConfigFileFailed indicates the configuration file could not be loaded.
var errReadConfigFileFailed = errors.New("failed to read config file")

// errInvalidConfig wraps validation failures reported by config.Config.
var errInvalidConfig = errors.New("invalid configuration")

// RegisterSystemFlags adds flags that configure storage, the HTTP server,
// repositories and logging to the root command.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.String(
		"config",
		envString("MINIGIT_CONFIG"),
		"Configuration file (YAML, TOML or JSON) whose keys are flag names")

	flags.StringP(
		"storage-dir",
		"d",
		envString("MINIGIT_STORAGE_DIR"),
		"Directory holding the bare repositories")

	flags.String(
		"http-host",
		envString("MINIGIT_HTTP_HOST"),
		"Host to bind the HTTP server to (default: all interfaces)")

	flags.StringP(
		"http-port",
		"p",
		envString("MINIGIT_HTTP_PORT"),
		"Port to bind the HTTP server to")

	flags.String(
		"auth-user",
		envString("MINIGIT_AUTH_USER"),
		"User for HTTP Basic authentication. Authentication is disabled when empty")

	flags.String(
		"auth-pass",
		envString("MINIGIT_AUTH_PASS"),
		"Password for HTTP Basic authentication, or a file containing it")

	flags.String(
		"initial-branch",
		envString("MINIGIT_INITIAL_BRANCH"),
		"Branch HEAD points to in newly created repositories")

	flags.StringSlice(
		"preferred-branches",
		envStringSlice("MINIGIT_PREFERRED_BRANCHES"),
		"Branch names tried in order when choosing a repository's default branch")

	flags.Int64(
		"max-preview-bytes",
		envInt64("MINIGIT_MAX_PREVIEW_BYTES"),
		"Largest file size rendered inline")

	flags.Bool(
		"allow-push",
		envBool("MINIGIT_ALLOW_PUSH"),
		"Serve git-receive-pack so clients can push")

	flags.String(
		"inventory-schedule",
		envString("MINIGIT_INVENTORY_SCHEDULE"),
		"The cron expression which defines when to scan storage. Empty disables scanning")

	flags.String(
		"log-level",
		envString("MINIGIT_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace",
	)

	flags.String(
		"log-format",
		envString("MINIGIT_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.BoolP(
		"debug",
		"",
		envBool("MINIGIT_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.BoolP(
		"trace",
		"",
		envBool("MINIGIT_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	// https://no-color.org/
	flags.BoolP(
		"no-color",
		"",
		viper.IsSet("NO_COLOR"),
		"Disable ANSI color escape codes in log output")
}

// RegisterNotificationFlags adds flags for push notifications to the root command.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringSlice(
		"notification-url",
		envStringSlice("MINIGIT_NOTIFICATION_URL"),
		"The shoutrrr URL to send push notifications to")

	flags.String(
		"notification-title",
		envString("MINIGIT_NOTIFICATION_TITLE"),
		"Title of push notifications")

	flags.String(
		"notification-template",
		envString("MINIGIT_NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for push messages")
}

// envString retrieves a string value from an environment variable via Viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envInt64 retrieves an integer value from an environment variable via Viper.
func envInt64(key string) int64 {
	viper.MustBindEnv(key)

	return viper.GetInt64(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// SetDefaults configures default values for environment variables.
// It must run before the flags are registered.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("MINIGIT_STORAGE_DIR", config.DefaultStorageDir)
	viper.SetDefault("MINIGIT_HTTP_PORT", config.DefaultHTTPPort)
	viper.SetDefault("MINIGIT_INITIAL_BRANCH", config.DefaultInitialBranch)
	viper.SetDefault("MINIGIT_PREFERRED_BRANCHES", []string{"main", "master"})
	viper.SetDefault("MINIGIT_MAX_PREVIEW_BYTES", config.DefaultMaxPreviewBytes)
	viper.SetDefault("MINIGIT_ALLOW_PUSH", true)
	viper.SetDefault("MINIGIT_INVENTORY_SCHEDULE", config.DefaultInventorySchedule)
	viper.SetDefault("MINIGIT_NOTIFICATION_URL", []string{})
	viper.SetDefault("MINIGIT_NOTIFICATION_TITLE", config.DefaultNotificationTitle)
	viper.SetDefault("MINIGIT_LOG_LEVEL", "info")
	viper.SetDefault("MINIGIT_LOG_FORMAT", "auto")
}

// LoadConfigFile reads the file named by --config, if any, and applies its
// values to flags that were not set on the command line.
//
// Parameters:
//   - flags: Parsed flag set containing the "config" flag.
//
// Returns:
//   - error: Non-nil if the file cannot be read or a value cannot be applied.
func LoadConfigFile(flags *pflag.FlagSet) error {
	path, err := flags.GetString("config")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if path == "" {
		return nil
	}

	file := viper.New()
	file.SetConfigFile(path)

	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %w", errReadConfigFileFailed, err)
	}

	var setErr error

	flags.VisitAll(func(flag *pflag.Flag) {
		if setErr != nil || flag.Changed || flag.Name == "config" || !file.IsSet(flag.Name) {
			return
		}

		value := file.GetString(flag.Name)
		if _, ok := flag.Value.(pflag.SliceValue); ok {
			value = strings.Join(file.GetStringSlice(flag.Name), ",")
		}

		if err := flags.Set(flag.Name, value); err != nil {
			setErr = fmt.Errorf("%w: %s: %w", errSetFlagFailed, flag.Name, err)
		}
	})

	if setErr != nil {
		return setErr
	}

	logrus.WithField("file", path).Debug("Loaded configuration file")

	return nil
}

// GetSecretsFromFiles replaces secret flag values with file contents if they reference files.
func GetSecretsFromFiles(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()

	secrets := []string{
		"auth-pass",
		"notification-url",
	}
	for _, secret := range secrets {
		if err := getSecretFromFile(flags, secret); err != nil {
			return fmt.Errorf("failed to get secret from flag %v: %w", secret, err)
		}
	}

	return nil
}

// getSecretFromFile updates a flag’s value with file contents if it references a file.
// Slice flags take one value per non-empty line.
func getSecretFromFile(flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(value) {
				values = append(values, value)

				continue
			}

			file, err := os.Open(value)
			if err != nil {
				return fmt.Errorf("%w: %w", errOpenFileFailed, err)
			}

			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				if line := scanner.Text(); line != "" {
					values = append(values, line)
				}
			}

			if err := file.Close(); err != nil {
				return fmt.Errorf("%w: %w", errCloseFileFailed, err)
			}
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(value) {
		content, err := os.ReadFile(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// isFilePath determines if a string likely represents an existing file path.
// Strings with a colon past the second character are treated as URLs.
func isFilePath(path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		return false
	}

	_, err := os.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

// ProcessFlagAliases applies --debug and --trace to the log level.
func ProcessFlagAliases(flags *pflag.FlagSet) {
	if flagIsEnabled(flags, "debug") {
		if err := flags.Set("log-level", "debug"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}

	if flagIsEnabled(flags, "trace") {
		if err := flags.Set("log-level", "trace"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}
}

// SetupLogging configures the global logger based on log-related flags.
// It sets the log format and level, returning an error for invalid configurations.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// ReadConfig builds and validates a config.Config from the parsed flags.
//
// Parameters:
//   - cmd: Command whose persistent flags were registered by RegisterSystemFlags
//     and RegisterNotificationFlags.
//
// Returns:
//   - config.Config: Validated configuration.
//   - error: Non-nil if a flag is missing or the configuration is invalid.
func ReadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.PersistentFlags()
	cfg := config.Default()

	var err error

	stringFlags := []struct {
		name   string
		target *string
	}{
		{"storage-dir", &cfg.StorageDir},
		{"http-host", &cfg.HTTPHost},
		{"http-port", &cfg.HTTPPort},
		{"auth-user", &cfg.AuthUser},
		{"auth-pass", &cfg.AuthPass},
		{"initial-branch", &cfg.InitialBranch},
		{"inventory-schedule", &cfg.InventorySchedule},
		{"notification-title", &cfg.NotificationTitle},
		{"notification-template", &cfg.NotificationTpl},
	}
	for _, s := range stringFlags {
		if *s.target, err = flags.GetString(s.name); err != nil {
			return config.Config{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	preferred, err := flags.GetStringSlice("preferred-branches")
	if err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	cfg.PreferredBranches = splitList(preferred)

	urls, err := flags.GetStringSlice("notification-url")
	if err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	for _, url := range urls {
		if url = strings.TrimSpace(url); url != "" {
			cfg.NotificationURLs = append(cfg.NotificationURLs, url)
		}
	}

	if cfg.MaxPreviewBytes, err = flags.GetInt64("max-preview-bytes"); err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.AllowPush, err = flags.GetBool("allow-push"); err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	return cfg, nil
}

// splitList flattens comma or whitespace separated entries and drops empties.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))

	for _, value := range values {
		out = append(out, strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}

	return out
}

// flagIsEnabled checks if a boolean flag is set to true.
// It exits with a fatal error if the flag is not defined.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.Fatalf("The flag %q is not defined", name)
	}

	return value
}
