package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/user/scanhub/pkg/api"
	"github.com/user/scanhub/pkg/logging"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		srv := api.NewServer(api.Config{Port: cfg.Server.Port}, a.manager, a.repo, a.alerter)
		log := logging.Component("serve")
		log.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"database": cfg.Database.Driver,
			"channels": a.alerter.Channels(),
		}).Info("Starting scanhub API")

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		// Handle Ctrl+C gracefully
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case err = <-errCh:
		case <-sigCh:
			fmt.Println("\nShutting down...")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if serr := srv.Shutdown(ctx); serr != nil {
			log.WithError(serr).Warn("HTTP shutdown incomplete")
		}
		if cerr := a.Close(ctx); cerr != nil {
			log.WithError(cerr).Warn("Job manager shutdown incomplete")
		}
		return err
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 8001)")
	rootCmd.AddCommand(serveCmd)
}
