// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"whitelist-bot/internal/common/config"
	"whitelist-bot/internal/common/logger"
	"whitelist-bot/internal/console"
	"whitelist-bot/internal/gateway"
	"whitelist-bot/internal/gateway/discord"
	"whitelist-bot/internal/interview"
	"whitelist-bot/internal/resolver"
	"whitelist-bot/internal/review"
	"whitelist-bot/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the config file")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting whitelist bot...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrCreated) {
			zapLog.Info("created a default config file, fill in the required values and restart",
				zap.String("path", *configPath))
			os.Exit(0)
		}
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log = logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	switch cfg.Store.Backend {
	case "redis":
		st = store.NewRedisStore(cfg.Store.Redis)
	default:
		st = store.NewFileStore(cfg.WhitelistPath)
	}
	if err := st.Load(ctx); err != nil {
		zapLog.Fatal("whitelist load failed", zap.Error(err))
	}

	adapter, err := discord.NewAdapter(cfg.Token, cfg.BotActivity, log)
	if err != nil {
		zapLog.Fatal("gateway setup failed", zap.Error(err))
	}

	relay := console.NewRelay(adapter, cfg.ConsoleChannelIDs, log)

	manager := interview.NewManager(st, resolver.NewMojangResolver(), adapter, interview.ManagerConfig{
		PendingChannelID: cfg.PendingChannelID,
		Timeout:          cfg.ReceiveTimeout(),
		Closed:           cfg.WhitelistsClosed,
	}, log)

	protocol := review.NewProtocol(st, adapter, adapter, relay, review.Config{
		GuildID:           cfg.GuildID,
		PendingChannelID:  cfg.PendingChannelID,
		ApprovedChannelID: cfg.ApprovedChannelID,
		RejectedChannelID: cfg.RejectedChannelID,
		StaffRoleID:       cfg.StaffRoleID,
		StatsPath:         cfg.StatsPath,
	}, log)

	manager.OnCardPosted(protocol.MarkPendingCard)

	adapter.OnDirectMessage(func(ctx context.Context, conv gateway.Conversation, msg gateway.Message) {
		if err := manager.HandleDirectMessage(ctx, conv, msg); err != nil {
			log.WithError(err).Error("interview failed", map[string]interface{}{
				"applicant_id": msg.AuthorID,
			})
		}
	})
	adapter.OnGuildMessage(func(ctx context.Context, msg gateway.Message) {
		if err := protocol.HandleCommand(ctx, msg); err != nil {
			log.WithError(err).Error("command failed", map[string]interface{}{
				"author_id": msg.AuthorID,
				"content":   msg.Content,
			})
		}
	})
	adapter.OnReaction(func(ctx context.Context, r gateway.Reaction) {
		if err := protocol.HandleReaction(ctx, r); err != nil {
			log.WithError(err).Error("reaction handling failed", map[string]interface{}{
				"message_id": r.MessageID,
				"emoji":      r.Emoji,
			})
		}
	})

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddress, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("metrics server stopped", nil)
		}
	}()

	if err := adapter.Run(ctx); err != nil {
		zapLog.Fatal("gateway connection failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
