package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"housing-listings/api"
	"housing-listings/config"
	"housing-listings/services"
	"housing-listings/storage"
	"housing-listings/utils"
)

func newServeStore(lc fx.Lifecycle, cfg *config.Config, logger *utils.Logger) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.EnsureSchema(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func newServeIngestor(cfg *config.Config, logger *utils.Logger) (*services.Ingestor, error) {
	return newIngestor(cfg, logger, cfg.SearchQueryFile)
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, h *api.Handler, logger *utils.Logger) *http.Server {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(h, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("[serve] Listening on %s", ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[serve] HTTP server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("[serve] Shutting down")
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

func serveOptions(cfg *config.Config, logger *utils.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, logger),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Zap()}
		}),
		fx.Provide(
			newServeStore,
			fx.Annotate(newServeIngestor, fx.As(new(api.Ingestor))),
			api.NewHandler,
			newHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the listings REST API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(serveOptions(cfg, logger))

		startCtx, cancel := context.WithTimeout(cmd.Context(), fx.DefaultTimeout)
		defer cancel()
		if err := app.Start(startCtx); err != nil {
			return err
		}

		<-app.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancel()
		return app.Stop(stopCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
