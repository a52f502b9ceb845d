package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/admins"
	"github.com/C4T-BuT-S4D/predlozhka/internal/bot"
	"github.com/C4T-BuT-S4D/predlozhka/internal/broadcast"
	"github.com/C4T-BuT-S4D/predlozhka/internal/config"
	"github.com/C4T-BuT-S4D/predlozhka/internal/logging"
	"github.com/C4T-BuT-S4D/predlozhka/internal/moderation"
	"github.com/C4T-BuT-S4D/predlozhka/internal/notify"
	"github.com/C4T-BuT-S4D/predlozhka/internal/session"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v4"
)

const sessionSweepInterval = time.Minute

func main() {
	setupConfig()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %+v", cfg)

	db, err := storage.OpenDB(cfg.DatabaseDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	store := storage.New(db, storage.WithRetry(cfg.StoreRetryAttempts, cfg.StoreRetryDelay))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	defer initCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	globalState, err := store.GetOrCreateGlobalState(initCtx)
	if err != nil {
		logrus.Fatalf("Failed to get or create global state: %v", err)
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token: cfg.TelegramToken,
		Poller: &telebot.LongPoller{
			Timeout:        10 * time.Second,
			LastUpdateID:   globalState.LastUpdateID,
			AllowedUpdates: []string{"message", "callback_query"},
		},
	})
	if err != nil {
		logrus.Fatalf("Failed to create bot: %v", err)
	}

	wg := sync.WaitGroup{}

	var sessionStore session.Store
	switch cfg.SessionBackend {
	case "redis":
		client, err := session.NewRedisClient(initCtx, cfg.RedisURL)
		if err != nil {
			logrus.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		sessionStore = session.NewRedisStore(client)
	default:
		mem := session.NewMemoryStore()
		wg.Add(1)
		go func() {
			defer wg.Done()
			mem.RunCleaner(ctx, sessionSweepInterval)
		}()
		sessionStore = mem
	}

	var notifier moderation.Notifier = bot.NewNotifier(tb)
	if cfg.NotifyWebhookURL != "" {
		logrus.Infof("mirroring notifications to %s", cfg.NotifyWebhookURL)
		notifier = notify.Multi{notifier, notify.NewWebhook(cfg.NotifyWebhookURL, cfg.NotifyWebhookTimeout)}
	}

	service := moderation.NewService(store, admins.New(store, cfg.AdminIDs), notifier)
	b := bot.New(
		cfg,
		service,
		store,
		session.NewManager(sessionStore, cfg.SessionTTL),
		broadcast.New(store, notifier, cfg.BroadcastRate, cfg.BroadcastConcurrency),
		tb,
	)
	b.Register(tb)

	wg.Add(1)
	go func() {
		defer wg.Done()
		tb.Start()
	}()

	logrus.Infof("bot started as @%s, resuming after update %d", tb.Me.Username, globalState.LastUpdateID)
	<-ctx.Done()

	tb.Stop()

	logrus.Info("waiting for services to finish")
	wg.Wait()
	b.Wait()
}

func setupConfig() {
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.SetDefault("session_backend", "memory")
	viper.SetDefault("session_ttl", "15m")
	viper.SetDefault("notify_webhook_timeout", "5s")
	viper.SetDefault("broadcast_rate", 25)
	viper.SetDefault("broadcast_concurrency", 4)
	config.SetupCommon()
}
