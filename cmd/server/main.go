package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SlpAus/guild-activity-tracker/api"
	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/birthday"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/config"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/health"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/shutdown"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/startup"
	"github.com/SlpAus/guild-activity-tracker/internal/scan"
	"github.com/SlpAus/guild-activity-tracker/internal/scheduler"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
	"github.com/SlpAus/guild-activity-tracker/pkg/lifecycle"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}
	if err := logger.Initialize(cfg.Log.Level); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("打开数据库失败: %v", err)
	}

	// 平台适配器在进程外运行，这里装配空实现；
	// 外部能力全部通过 /api/events 等接口进入。
	adapter := transport.Noop{}
	var roster transport.Roster = adapter
	var messenger transport.Messenger = adapter
	var history transport.History = adapter
	var identity transport.Identity = adapter

	act := activity.NewService(db, cfg.Tracking.Cooldown())
	bd := birthday.NewService(db, act)
	board := birthday.NewReconciler(bd.Repository(), messenger, cfg.Guild.Channels.Birthdays, identity.SelfID())
	gateway := transport.NewGateway(act, roster, cfg.Guild.Roles.Inactive, cfg.Tracking.IgnoredChannels)
	scanner := scan.NewScanner(history, act)

	ctx := context.Background()
	if err := startup.InitializeApplication(ctx, act, bd); err != nil {
		logger.Log.Fatalf("应用初始化失败，无法启动: %v", err)
	}

	// 生命周期管理器：优雅阶段给任务收尾的机会，强制阶段立刻退出
	gracefulMgr := lifecycle.NewManager()
	forcefulMgr := lifecycle.NewManager()

	if db.Redis != nil {
		checker := health.NewChecker(db, startup.RebuildCache(act))
		if err := checker.InitializeRunID(ctx); err != nil {
			logger.Log.Warnf("启动时Redis不可用，排行榜镜像暂不生效: %v", err)
			db.Redis.UpdateStatus(false, "")
		} else {
			checker.PerformCheck(ctx)
		}

		healthHandle, err := gracefulMgr.NewServiceHandle("redis-health-checker")
		if err != nil {
			logger.Log.Fatalf("注册健康检查器失败: %v", err)
		}
		go checker.Start(healthHandle)
	}

	jobs := scheduler.NewJobs(db, act, bd, roster, messenger, cfg)
	for name, start := range map[string]func(*lifecycle.Handle){
		"inactivity-sweep":   jobs.StartInactivitySweep,
		"monthly-rollover":   jobs.StartMonthlyRollover,
		"weekly-maintenance": jobs.StartWeeklyMaintenance,
		"birthday-digest":    jobs.StartBirthdayDigest,
	} {
		handle, err := gracefulMgr.NewServiceHandle(name)
		if err != nil {
			logger.Log.Fatalf("注册定时任务 %s 失败: %v", name, err)
		}
		go start(handle)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(router, db, api.Handlers{
		Activity:  activity.NewHandler(act, cfg.Tracking.TopLimit, cfg.Tracking.InactivityDays),
		Birthday:  birthday.NewHandler(bd, board),
		Transport: transport.NewHandler(gateway, act, roster),
		Scan:      scan.NewHandler(scanner),
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	go func() {
		logger.Log.Infof("服务器已准备就绪，开始监听 %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("HTTP服务器启动失败: %v", err)
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.ListenForSignalsAndShutdown(server)
}
