// Package flags manages command-line flags and environment variables for minigit configuration.
// It registers server, repository, scheduling and notification flags via Cobra and Viper.
//
// Key components:
//   - RegisterSystemFlags: Adds storage, HTTP, repository and logging flags.
//   - RegisterNotificationFlags: Adds push notification settings.
//   - LoadConfigFile: Fills unset flags from an optional configuration file.
//   - SetupLogging: Configures logrus based on flags.
//   - ReadConfig: Builds a validated config.Config from the parsed flags.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterSystemFlags(cmd)
//	cfg, err := flags.ReadConfig(cmd)
//	if err != nil {
//	    logrus.WithError(err).Fatal("Invalid configuration")
//	}
//
// Every flag defaults from a MINIGIT_* environment variable bound through Viper.
package flags
