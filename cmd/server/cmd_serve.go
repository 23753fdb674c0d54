package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/safe-skin/internal/config"
	"github.com/Brownie44l1/safe-skin/internal/handlers"
	"github.com/Brownie44l1/safe-skin/internal/imageproc"
	"github.com/Brownie44l1/safe-skin/internal/logging"
	"github.com/Brownie44l1/safe-skin/internal/model"
	"github.com/Brownie44l1/safe-skin/internal/service"
	"github.com/Brownie44l1/safe-skin/internal/session"
	"github.com/Brownie44l1/safe-skin/internal/telegram"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (and the Telegram bot when TELEGRAM_TOKEN is set)",
	Long: `Loads the classifier once and serves the prediction and solution views.

A missing or broken model does not stop the server: prediction is reported
as unavailable while the home and solution views keep working.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default $PORT or 8080)")
}

// newService wires the gateway, sessions and normalizer from cfg.
func newService(cfg *config.Config) (*service.Service, *model.Gateway) {
	gateway := model.NewGateway(model.OnnxLoader(model.Options{
		ModelPath:         cfg.ModelPath,
		MetadataPath:      cfg.MetadataPath,
		SharedLibraryPath: cfg.SharedLibraryPath,
	}))

	size := imageproc.DefaultSize
	if meta, err := model.LoadMetadata(cfg.MetadataPath); err == nil {
		size = meta.ImageSize
	}

	svc := service.New(gateway, session.NewMemoryRepository(), imageproc.NewNormalizer(size))
	return svc, gateway
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Lookup("port") != nil && cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	log := logging.New("server")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, gateway := newService(cfg)
	defer gateway.Close()

	log.Info("loading model", "path", cfg.ModelPath)
	if err := svc.Start(ctx); err != nil {
		log.Warn("serving without prediction", "error", err)
	} else {
		log.Info("model loaded", "path", cfg.ModelPath)
	}

	mux := http.NewServeMux()
	handlers.NewHandler(svc, cfg.MaxUploadBytes).Routes(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		if bot, err = telegram.NewBot(cfg.TelegramToken, svc); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	return g.Wait()
}
