package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"emblitzgo/internal/bot"
	"emblitzgo/internal/config"
	"emblitzgo/internal/database/db_client"
	"emblitzgo/internal/game"
	"emblitzgo/internal/http/adminhandler"
	"emblitzgo/internal/http/apihandler"
	"emblitzgo/internal/http/http_server"
	"emblitzgo/internal/redis/redis_client"
	"emblitzgo/internal/rooms"
	"emblitzgo/internal/services/announce"
	"emblitzgo/internal/services/profile"
	"emblitzgo/internal/syncgames"
	"emblitzgo/internal/syncstats"
	"emblitzgo/internal/ws"

	authpkg "emblitzgo/internal/auth"
)

const gameVersion = "1.2.1"

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)
	Log.Info("starting emblitz session server", zap.String("version", gameVersion))

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	var redisClient *redis.Client
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres
	pgDb, err := db_client.Open(cfg.DatabaseHost, cfg.DatabasePort,
		cfg.DatabaseUser, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseMaxConns)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Game engine and room registry
	engine := game.New(time.Duration(cfg.LobbyTime) * time.Second)
	engine.Run(ctx)
	registry := rooms.NewRegistry(engine, time.Duration(cfg.DeployTime)*time.Second)

	// 6. Content services
	announceSvc := announce.NewAnnounceService(pgDb, redisClient)
	profileSvc := profile.NewProfileService(pgDb)

	// 7. Background: persist finished games and mirror live stats
	syncgames.Run(ctx, redisClient, pgDb)
	syncstats.Run(ctx, redisClient, pgDb)

	// 8. WebSockets: hub, server, engine-event bridge
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, registry, engine, redisClient)
	wsSrv.RunBridge(ctx)

	// 9. Optional bot players keep public lobbies warm
	if cfg.BotFill > 0 {
		bot.FillLobbies(ctx, registry, engine, cfg.BotFill)
	}

	// 10. HTTP + WS server
	tokens := authpkg.NewTokenIssuer(cfg.AuthSecret)
	apiH := apihandler.New(registry, announceSvc, profileSvc, cfg.MapDataDir)
	adminH := adminhandler.New(announceSvc, cfg.AdminMasterPassword)

	httpServer := http_server.NewHttpServer(ctx, cfg.ServerPort, wsSrv, apiH, adminH, tokens, redisClient)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
