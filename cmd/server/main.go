package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/config"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/pkg/logger"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hackfest",
		Short:        "Multi-tenant hackathon project board",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.yaml")

	serve := serveCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, migrateCmd(), exportCSVCmd(), recalcHotnessCmd())
	return root
}

// loadConfig reads the configuration and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := bootstrap(cfg)
			if err != nil {
				return err
			}
			defer app.shutdown()

			if err := app.startBackground(); err != nil {
				return err
			}

			gin.SetMode(cfg.Server.Mode)
			r := gin.New()
			registerRoutes(r, app)

			srv := &http.Server{
				Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Infof("Server starting on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case sig := <-quit:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := models.Open(&cfg.Database)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return err
			}
			logger.Info().Str("driver", cfg.Database.Driver).Msg("migration complete")
			return nil
		},
	}
}

func exportCSVCmd() *cobra.Command {
	var subdomain, out string

	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Write an organization's projects as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := bootstrap(cfg)
			if err != nil {
				return err
			}
			defer app.shutdown()

			ctx := cmd.Context()
			org, err := app.orgs.GetBySubdomain(ctx, subdomain)
			if err != nil {
				return fmt.Errorf("organization %q: %w", subdomain, err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return app.projects.ExportCSV(ctx, org.ID, w)
		},
	}
	cmd.Flags().StringVar(&subdomain, "org", "", "organization subdomain")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func recalcHotnessCmd() *cobra.Command {
	var subdomain string

	cmd := &cobra.Command{
		Use:   "recalc-hotness",
		Short: "Recompute hotness scores now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := bootstrap(cfg)
			if err != nil {
				return err
			}
			defer app.shutdown()

			ctx := cmd.Context()
			var n int
			if subdomain != "" {
				org, err := app.orgs.GetBySubdomain(ctx, subdomain)
				if err != nil {
					return fmt.Errorf("organization %q: %w", subdomain, err)
				}
				n, err = app.projects.RecalculateAll(ctx, org.ID)
				if err != nil {
					return err
				}
			} else {
				n, err = app.hotness.RunOnce(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rescored %d projects\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&subdomain, "org", "", "limit to one organization subdomain")
	return cmd
}
