package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeetLima/osdbinfos/internal/constants"
	"github.com/MeetLima/osdbinfos/pkg/core/fileops"
	"github.com/MeetLima/osdbinfos/pkg/core/store"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys
const (
	CfgKeyUsername     = "opensubtitles.username"
	CfgKeyPassword     = "opensubtitles.password"
	CfgKeyLanguage     = "opensubtitles.language"
	CfgKeyUserAgent    = "opensubtitles.useragent"
	CfgKeyEndpoint     = "opensubtitles.endpoint"
	CfgKeyTimeout      = "opensubtitles.timeout"
	CfgKeyStateBackend = "state.backend"
	CfgKeyStateDir     = "state.dir"
	CfgKeyCacheEnabled = "cache.enabled"
	CfgKeyCacheTTL     = "cache.ttl"
	CfgKeyHashWorkers  = "hash.workers"
	CfgKeyLogLevel     = "log.level"
)

var (
	// Used for flags.
	cfgFile string

	// RootCmd represents the base command when called without any subcommands.
	// Exported for use in tests.
	RootCmd = &cobra.Command{
		Use:           "osdbinfos",
		Short:         "Identify video files through OpenSubtitles movie hashes.",
		Version:       constants.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `osdbinfos computes the OpenSubtitles hash of video files and asks
OpenSubtitles which movie or episode each of them is.

The session token is kept in the state directory and reused for 14 minutes.`,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.osdbinfos/config.yaml)")
	flags.String("username", "", "OpenSubtitles username (anonymous when empty)")
	flags.String("password", "", "OpenSubtitles password")
	flags.String("language", constants.DefaultLanguage, "language sent at login")
	flags.String("endpoint", constants.DefaultEndpoint, "XML-RPC endpoint")
	flags.Duration("timeout", constants.DefaultTimeout, "timeout of each remote call")
	flags.String("state-backend", store.BackendFile, "where the session and cache are kept (file, badger)")
	flags.String("state-dir", "", "state directory (default is $TMPDIR/osdbinfos)")
	flags.Bool("cache", true, "cache lookup results in the state directory")
	flags.Int("workers", fileops.DefaultWorkers, "number of files hashed at once")
	flags.String("log-level", "warning", "log level (debug, info, warning, error)")

	for key, flag := range map[string]string{
		CfgKeyUsername:     "username",
		CfgKeyPassword:     "password",
		CfgKeyLanguage:     "language",
		CfgKeyEndpoint:     "endpoint",
		CfgKeyTimeout:      "timeout",
		CfgKeyStateBackend: "state-backend",
		CfgKeyStateDir:     "state-dir",
		CfgKeyCacheEnabled: "cache",
		CfgKeyHashWorkers:  "workers",
		CfgKeyLogLevel:     "log-level",
	} {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(CfgKeyLanguage, constants.DefaultLanguage)
	v.SetDefault(CfgKeyUserAgent, constants.DefaultUserAgent)
	v.SetDefault(CfgKeyEndpoint, constants.DefaultEndpoint)
	v.SetDefault(CfgKeyTimeout, constants.DefaultTimeout)
	v.SetDefault(CfgKeyStateBackend, store.BackendFile)
	v.SetDefault(CfgKeyStateDir, filepath.Join(os.TempDir(), "osdbinfos"))
	v.SetDefault(CfgKeyCacheEnabled, true)
	v.SetDefault(CfgKeyCacheTTL, constants.DefaultCacheTTL)
	v.SetDefault(CfgKeyHashWorkers, fileops.DefaultWorkers)
	v.SetDefault(CfgKeyLogLevel, "warning")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".osdbinfos"))
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OSDBINFOS") // e.g. OSDBINFOS_OPENSUBTITLES_USERNAME
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading config file (%s): %v\n", viper.ConfigFileUsed(), err)
		}
	}
}

// requirePaths prints the usage of commands called without any PATH.
func requirePaths(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		_ = cmd.Usage()
		return errors.New("at least one PATH is required")
	}
	return nil
}

// newLogger returns a logger writing to w at the configured level.
func newLogger(w io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(viper.GetString(CfgKeyLogLevel))
	if err != nil {
		logger.Warnf("Unknown log level %q, using warning", viper.GetString(CfgKeyLogLevel))
		level = log.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}
