package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ruvnet/crdtcheck/internal/config"
	"github.com/ruvnet/crdtcheck/internal/dashboard"
	"github.com/ruvnet/crdtcheck/internal/middleware"
	"github.com/ruvnet/crdtcheck/internal/telemetry"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the read-only exploration dashboard",
}

var serveDashboardCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP/WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !cfg.Dashboard.Enabled {
			return fmt.Errorf("dashboard is disabled; set CRDTCHECK_DASHBOARD_ENABLED=true")
		}

		reporter, err := telemetry.New(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("build telemetry: %w", err)
		}
		defer reporter.Sync()

		hub := dashboard.NewHub(reporter.Logger)
		srv := dashboard.NewServer(dashboard.Config{
			Host:      cfg.Dashboard.Host,
			Port:      cfg.Dashboard.Port,
			JWTSecret: cfg.Dashboard.JWTSecret,
		}, hub, reporter.Logger)

		reporter.Logger.Info("starting dashboard", zap.String("addr", fmt.Sprintf("%s:%d", cfg.Dashboard.Host, cfg.Dashboard.Port)))
		return srv.ListenAndServe()
	},
}

var tokenSubject string
var tokenTTL time.Duration

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Issue a viewer JWT for the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		token, err := middleware.IssueViewerToken(cfg.Dashboard.JWTSecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	dashboardCmd.AddCommand(serveDashboardCmd)
	dashboardCmd.AddCommand(issueTokenCmd)
	issueTokenCmd.Flags().StringVar(&tokenSubject, "subject", "viewer", "token subject")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token validity duration")
}
