package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tempmail/bot/internal/bot"
	"tempmail/bot/internal/config"
	"tempmail/bot/internal/health"
	"tempmail/bot/internal/logger"
	"tempmail/bot/internal/monitoring"
	"tempmail/bot/internal/pool"
	"tempmail/bot/internal/provider"
	"tempmail/bot/internal/service"
	"tempmail/bot/internal/storage/memory"
	httptransport "tempmail/bot/internal/transport/http"
)

// main 启动 Telegram 机器人和配套的探活 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.LogFile,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting tempmail bot",
		zap.String("provider", cfg.Provider.BaseURL),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层（会话只存内存，进程重启后由恢复令牌找回）
	store := memory.NewStore()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化服务商客户端
	api := provider.NewClient(provider.Config{
		BaseURL:    cfg.Provider.BaseURL,
		Timeout:    cfg.Provider.Timeout,
		RetryCount: cfg.Provider.RetryCount,
	}, log)

	// 初始化服务层
	sessionService := service.NewSessionService(store, api, metrics, log)
	inboxService := service.NewInboxService(api, cfg.Inbox.MaxMessages, cfg.Inbox.MaxBodyChars, metrics, log)

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(api, store, log)

	// 接入 Telegram
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal("failed to connect to telegram", zap.Error(err))
	}
	tg.Debug = cfg.Telegram.Debug
	log.Info("telegram connection established", zap.String("username", tg.Self.UserName))

	// 创建分发器
	dispatcher := bot.NewDispatcher(bot.Config{
		API:      tg,
		Sessions: sessionService,
		Inbox:    inboxService,
		Workers:  pool.NewWorkerPool(cfg.Worker.MaxWorkers, cfg.Worker.QueueSize, log),
		Limiter:  bot.NewUserLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		Metrics:  metrics,
		Logger:   log,
	})

	// 创建探活 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		HealthChecker: healthChecker,
		Metrics:       metrics,
		Sessions:      store,
		Logger:        log,
		Development:   cfg.Log.Development,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting keep-alive HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// Telegram 长轮询 goroutine
	group.Go(func() error {
		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = cfg.Telegram.PollTimeout

		log.Info("starting telegram long polling", zap.Int("timeout", cfg.Telegram.PollTimeout))
		dispatcher.Run(groupCtx, tg.GetUpdatesChan(updateConfig))
		return nil
	})

	// 活跃会话数上报 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.SessionsActive.Set(float64(store.Count()))
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		tg.StopReceivingUpdates()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("bot error", zap.Error(err))
	}

	log.Info("bot exited cleanly")
}
