package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rlis-backend/config"
	"rlis-backend/internal/logger"
)

var (
	configPath string
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:                "rlisd",
		Short:              "Radiation machine inspection registry",
		SilenceUsage:       true,
		PersistentPreRunE:  initGlobalResource,
		PersistentPostRunE: cleanGlobalResource,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./config/config.yaml)")
	root.SetContext(ctx)
	root.AddCommand(newServe(), newImport(), newReport())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initGlobalResource(_ *cobra.Command, _ []string) error {
	envErr := godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(&logger.LogConfig{
		Path:     cfg.Log.Path,
		LogLevel: cfg.Log.Level,
		Service:  "rlisd",
	})
	if envErr != nil {
		logger.Warnf(context.Background(), "no .env file found, using environment variables")
	}
	logger.Infof(context.Background(), "configuration loaded from %s", configPath)
	return nil
}

func cleanGlobalResource(_ *cobra.Command, _ []string) error {
	logger.Close()
	return nil
}
