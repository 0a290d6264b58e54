// Command souk runs the Tounfite Souk classifieds server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tounfite-souk/app/internal/config"
	"github.com/tounfite-souk/app/internal/logging"
	"go.uber.org/zap"
)

var (
	configPath string
	envFile    string
	verbose    bool
)

// rootCmd serves by default.
var rootCmd = &cobra.Command{
	Use:   "souk",
	Short: "Tounfite Souk local classifieds server",
	Long: `Tounfite Souk lets sellers list items with photos and buyers browse,
search and message sellers.

Without a subcommand the server is started, same as "souk serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("SOUK_CONFIG"), "YAML config file (or set SOUK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initdbCmd)
}

// setup loads and validates the configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, verbose)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
