package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zerbitx/gnockfile/config"
	"github.com/zerbitx/gnockfile/gnocker"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	overrides := &config.Env{}

	cmd := &cobra.Command{
		Use:          "gnockfile",
		Short:        "Serve raw HTTP mock files from a directory tree",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = overrides.Host
			}
			if flags.Changed("port") {
				cfg.Port = overrides.Port
			}
			if flags.Changed("mocks-dir") {
				cfg.MocksDir = overrides.MocksDir
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = overrides.LogLevel
			}

			return serve(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $GNOCK_CONFIG)")
	flags.StringVar(&overrides.Host, "host", "", "address to listen on")
	flags.IntVarP(&overrides.Port, "port", "p", 0, "port to listen on")
	flags.StringVarP(&overrides.MocksDir, "mocks-dir", "m", "", "root directory of the mock files")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "logrus level: trace, debug, info, warn, error")

	return cmd
}

func serve(cfg *config.Env) error {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	g := gnocker.New(
		gnocker.WithLogger(logger),
		gnocker.WithHost(cfg.Host),
		gnocker.WithPort(cfg.Port),
		gnocker.WithMocksDir(cfg.MocksDir),
		gnocker.WithAdminBasePath(cfg.AdminBasePath),
	)

	errc := make(chan error, 1)

	go func() {
		errc <- g.Start()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-sigc:
		logger.WithField("signal", sig).Info("shutting down")
		return g.Shutdown()
	}
}
