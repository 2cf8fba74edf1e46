package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/observability"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}
			if migrate {
				if err := models.AutoMigrate(db); err != nil {
					return err
				}
				log.Info("database migrated")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing := observability.InitTracing(runCtx, log, cfg)
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTracing(sctx); err != nil {
					log.Warn("tracer shutdown failed", "error", err)
				}
			}()

			rdb := ctx.redisClient()
			if rdb != nil {
				if err := rdb.Ping(runCtx).Err(); err != nil {
					log.Warn("redis ping failed", "error", err)
				}
			} else {
				log.Info("redis not configured, pending sessions kept in memory")
			}

			a := newApp(runCtx, cfg, log, db, rdb)
			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           a.router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error {
				return a.hub.Run(gctx)
			})
			g.Go(func() error {
				log.Info("server starting", "addr", srv.Addr, "env", cfg.Env, "admin_email", cfg.AdminEmail)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				log.Info("server shutting down")
				return srv.Shutdown(sctx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "Run database migrations before serving")
	return cmd
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}
			if err := models.AutoMigrate(db); err != nil {
				return err
			}
			log.Info("database migrated", "models", len(models.All()))
			return nil
		},
	}
}
