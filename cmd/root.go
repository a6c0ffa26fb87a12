// Package cmd implements the command-line interface of the rental
// monitor's ingestion pipeline.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/madebyarthouse/rental-monitor-sub000/cmd/repair"
	"github.com/madebyarthouse/rental-monitor-sub000/cmd/runs"
	"github.com/madebyarthouse/rental-monitor-sub000/cmd/schedule"
	"github.com/madebyarthouse/rental-monitor-sub000/cmd/scrape"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "rental-monitor",
		Short: "Rental listing scrape pipeline",
		Long:  `Discovers, refreshes, and verifies rental listings scraped from a marketplace.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to Viper.
	_ = godotenv.Load()

	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(scrape.DiscoverCommand())
	rootCmd.AddCommand(scrape.SweepCommand())
	rootCmd.AddCommand(scrape.VerifyCommand())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(runs.Command())
	rootCmd.AddCommand(repair.Command())
}

// initConfig reads the config file and environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file is optional; env and defaults cover everything.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v (using defaults and environment)\n", err)
	}

	if err := viper.BindPFlag("logger.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}

	if Debug || viper.GetBool("logger.debug") {
		viper.Set("logger.level", "debug")
	}

	return nil
}
