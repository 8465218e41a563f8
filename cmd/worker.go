/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobfinder/apiserver/config"
	"github.com/jobfinder/apiserver/internal/logging"
	"github.com/jobfinder/apiserver/internal/mailer"
	"github.com/jobfinder/apiserver/internal/server"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes notification events and sends email",
	Long: `Consumes notification events from the message queue and delivers the
matching emails. Usage:

	jobfinder worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log, os.Stdout)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.MQ.Driver == "memory" {
			return errors.New("the memory broker is consumed by the server process; run a real broker for a separate worker")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repos, err := server.OpenRepositories(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer repos.Close()

		queue, err := server.OpenQueue(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open queue: %w", err)
		}
		defer queue.Close()

		handler := services.NewNotificationHandler(repos.Users, repos.Jobs, repos.Companies, mailer.New(cfg.SMTP, logger), logger)

		logger.Info("worker consuming notifications", "driver", cfg.MQ.Driver, "channel", cfg.MQ.NotificationsChannel)
		if err := queue.Subscribe(ctx, cfg.MQ.NotificationsChannel, handler.Handle); err != nil && ctx.Err() == nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		logger.Info("worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
