// Package main implements the devmock command line: browse the bundled
// questions library, generate AI questions and take mock interviews.
package main

import (
	"fmt"
	"os"

	"devmock"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devmock",
	Short: "Mock technical interviews from a local library or an AI model",
	Long:  "devmock runs multiple choice mock interviews. Questions come from the bundled topic library or are generated on demand by an OpenAI-compatible chat model.",
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debugging output")
}

// loadConfig reads the config file and environment; the verbose flag wins
// over the config value when set.
func loadConfig() (devmock.Config, error) {
	cfg, err := devmock.LoadConfig(configPath)
	if err != nil {
		return devmock.Config{}, err
	}
	if verbose {
		cfg.Verbose = true
	}
	devmock.SetVerbose(cfg.Verbose)
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
