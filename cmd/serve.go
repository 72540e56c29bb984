package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dinq_match/handler"
	"dinq_match/middleware"
	"dinq_match/realtime"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket API and the in-process delivery ticker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, rdb, err := connect(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	svcs, err := buildServices(cfg, db, rdb)
	if err != nil {
		return err
	}

	middleware.InitAuth(cfg.JWTSecret)

	var realtimeHandler *handler.RealtimeHandler
	if rdb != nil {
		registry := realtime.NewRegistry(rdb, utils.Logger())
		defer registry.Close()
		realtimeHandler = handler.NewRealtimeHandler(registry, svcs.profiles)
	}

	if !cfg.LogDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Match:          handler.NewMatchHandler(svcs.match, svcs.relations),
		Notification:   handler.NewNotificationHandler(svcs.notification, svcs.delivery),
		Template:       handler.NewNotificationTemplateHandler(svcs.templates),
		Settings:       handler.NewSystemSettingsHandler(svcs.settings),
		Realtime:       realtimeHandler,
		InternalAPIKey: cfg.InternalAPIKey,
		AdminUserIDs:   cfg.AdminUserIDs,
	})

	// 间隔为 0 时由外部调度器执行 deliver 命令
	if cfg.Delivery.Interval > 0 {
		go svcs.delivery.RunEvery(ctx, cfg.Delivery.Interval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Logger().Info("dinq_match service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Logger().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
