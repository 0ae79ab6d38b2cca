package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pills-bot/internal/app"
	"pills-bot/internal/config"
	"pills-bot/internal/report"
	"pills-bot/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:          "pills-bot",
		Short:        "Telegram bot for logging medication intake and health notes",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newMigrateCmd(), newExportCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, config.New())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Printf("failed to close store: %v", err)
				}
				log.Println("✅ Бот остановлен")
			}()
			return a.Serve(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			if store.IsPostgres(cfg.DatabaseURL) {
				if err := store.MigratePostgres(cfg.DatabaseURL); err != nil {
					return err
				}
				log.Println("✅ Migrations applied")
				return nil
			}
			// SQLite applies its schema on open.
			st, err := store.Open(cmd.Context(), cfg.DatabaseURL, store.PoolConfig{})
			if err != nil {
				return err
			}
			log.Println("✅ Schema ready")
			return st.Close()
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		userID int64
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a user's PDF report to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, config.New())
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Reports.Generate(ctx, userID)
			if errors.Is(err, report.ErrNoRecords) {
				fmt.Fprintf(cmd.OutOrStdout(), "user %d has no records\n", userID)
				return nil
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = rep.Filename
			}
			if err := os.WriteFile(out, rep.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d sections, %d bytes)\n", out, rep.Sections, len(rep.Data))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram user ID")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: generated report filename)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
