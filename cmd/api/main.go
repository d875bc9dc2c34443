package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medication-schedule/internal/platform/config"
)

// @title Medication Schedule API
// @version 1.0
// @description Horarios de medicación, detección de conflictos y resolución asistida.
// @BasePath /

var configFile string

var rootCmd = &cobra.Command{
	Use:   "medication-schedule",
	Short: "Medication scheduling and conflict-detection engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env es opcional (dev); las variables del entorno tienen prioridad.
		_ = godotenv.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file (same keys as the env vars, lower case)")
	rootCmd.AddCommand(serveCmd, checkCmd)
}

// loadConfig lee env + archivo opcional.
func loadConfig() (config.Config, *viper.Viper, error) {
	v, err := config.New(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, v, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
