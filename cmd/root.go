// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"linkparser/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagUploadPath string
	flagUploadURL  string
	flagMaxImages  int
	flagJSON       bool
	flagDebug      bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

// logger writes to stderr; stdout is reserved for previews.
var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "linkparser [url]",
	Short: "Build a link preview for a URL",
	Long: `Linkparser fetches a web page and builds a preview: title, description
and a thumbnail re-hosted in the upload directory. Video hosting pages
(YouTube, Vimeo, Rutube, Coub) get their canonical thumbnail.`,
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: loadConfig,
	RunE:              previewRun,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagUploadPath, "upload-path", "", "Directory relayed images are written to")
	rootCmd.PersistentFlags().StringVar(&flagUploadURL, "upload-url", "", "Public URL prefix of the upload directory")
	rootCmd.PersistentFlags().IntVar(&flagMaxImages, "max-images", 0, "Max <img> candidates tried per page")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output the preview as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagUploadPath != "" {
		cfg.UploadPath = flagUploadPath
	}
	if cmd.Flags().Changed("upload-url") {
		cfg.UploadURL = flagUploadURL
	}
	if flagMaxImages != 0 {
		cfg.MaxImages = flagMaxImages
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = newLogger(cfg.Debug)
	return nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Str("app", "linkparser").
		Logger()
}

// debugf logs a message if debug mode is enabled.
func debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}
