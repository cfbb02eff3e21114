package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/reelsmith/internal/config"
	"github.com/kikiluvv/reelsmith/internal/logging"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "reelsmith",
	Short:         "reelsmith - narrated video assembly",
	Long:          "Turns a scene-by-scene project file into a finished narrated video with transitions, subtitles and background music.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load() // best-effort: load .env if present

		logging.Init(logging.Options{Verbose: verbose, JSON: logJSON})

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reelsmith.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON instead of console text")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(config.FromContext(cmd.Context())); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
