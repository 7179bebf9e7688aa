package main

import (
	"context"
	"log"
	"metadata-negotiator/internal/app"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume negotiation requests from kafka and publish the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			negotiatorApp := app.InitApp()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := negotiatorApp.StartApp(ctx); err != nil {
				log.Printf("failed to start negotiator: %v", err)
				return err
			}

			<-ctx.Done()

			log.Println("Shutting down the negotiator...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := negotiatorApp.StopApp(shutdownCtx); err != nil {
				log.Printf("failed to stop negotiator gracefully: %v", err)
				return err
			}

			log.Println("Exited cleanly")
			return nil
		},
	}
}
