package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tgads_go/internal/config"
	"tgads_go/internal/middleware"
	"tgads_go/internal/order"
	"tgads_go/internal/party"
	"tgads_go/internal/scheduler"
	"tgads_go/internal/slot"
	"tgads_go/internal/withdrawal"
	"tgads_go/pkg/cryptopay"
	"tgads_go/pkg/events"
	"tgads_go/pkg/ledger"
	"tgads_go/pkg/monitor"
	"tgads_go/pkg/orders"
	"tgads_go/pkg/rates"
	"tgads_go/pkg/settlement"
	"tgads_go/pkg/slots"
	"tgads_go/pkg/storage"
	"tgads_go/pkg/telegram"
	withdrawals "tgads_go/pkg/withdrawal"

	"github.com/gin-gonic/gin"
	"github.com/gotd/td/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	issue := flag.Int64("token", 0, "выпустить JWT для пользователя с этим id и выйти")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *issue > 0 {
		token, err := middleware.IssueToken(cfg.JWTSecret, *issue, 30*24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("сервис остановлен с ошибкой", zap.Error(err))
	}
	log.Info("сервис остановлен")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return zcfg.Build()
}

// run собирает зависимости, запускает бота, фоновые задачи и HTTP-сервер.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, sessions, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	bot, err := telegram.NewBot(telegram.Config{
		APIID:    cfg.TelegramAPIID,
		APIHash:  cfg.TelegramAPIHash,
		BotToken: cfg.TelegramBotToken,
		Proxy:    cfg.TelegramProxy,
	}, sessions, log.Named("telegram"))
	if err != nil {
		return err
	}
	botErr := make(chan error, 1)
	ready := make(chan struct{})
	go func() { botErr <- bot.Run(ctx, ready) }()
	select {
	case <-ready:
	case err := <-botErr:
		return fmt.Errorf("telegram: %w", err)
	case <-time.After(time.Minute):
		return errors.New("telegram: бот не подключился за минуту")
	case <-ctx.Done():
		return nil
	}
	notifier := telegram.NewNotifier(bot, store)

	pay := cryptopay.New(cfg.CryptoPayToken, cfg.CryptoPayURL, log.Named("cryptopay"))
	engine := settlement.NewEngine(store, settlement.Config{
		PenaltyRate: cfg.PenaltyRate,
		PayoutHour:  cfg.PayoutHour,
		Location:    cfg.Location,
	}, publisher, log.Named("settlement"))
	orderSvc := orders.NewService(orders.Deps{
		Store:      store,
		Settlement: engine,
		Gateway:    pay,
		Host:       bot,
		Notifier:   notifier,
		Events:     publisher,
		Log:        log.Named("orders"),
	}, orders.Config{
		CommissionRate: cfg.CommissionRate,
		InvoiceTTL:     cfg.InvoiceTTL,
		AdminIDs:       cfg.AdminIDs,
	})
	slotSvc := slots.NewService(store, bot, log.Named("slots"))
	ledgerSvc := ledger.NewService(store)
	quoter := rates.NewQuoter(rates.NewHTTPOracle(rates.DefaultTonAPI, rates.DefaultCoinGecko), newRateCache(cfg, log), cfg.RateCacheTTL, log.Named("rates"))
	processor := withdrawals.NewProcessor(store, pay, quoter, publisher, cfg.MinWithdrawal, log.Named("withdrawal"))
	mon := monitor.New(orderSvc, engine, bot, notifier, cfg.ProbeDelay, log.Named("monitor"))

	sched := scheduler.New(log.Named("scheduler"),
		scheduler.Job{
			Name:    "payouts",
			Next:    scheduler.Daily(cfg.PayoutHour, cfg.Location),
			AtStart: true,
			Run: func(ctx context.Context) error {
				res, err := engine.Sweep(ctx, time.Now())
				log.Info("выплаты", zap.Int("paid", res.Paid), zap.Int("cancelled", res.Cancelled),
					zap.Int("failed", res.Failed), zap.String("credited", res.Credited.StringFixed(2)))
				return err
			},
		},
		scheduler.Job{
			Name: "monitor",
			Next: scheduler.Every(cfg.MonitorInterval),
			Run: func(ctx context.Context) error {
				rep, err := mon.Sweep(ctx)
				if rep.Completed+rep.Violated+rep.Failed > 0 {
					log.Info("мониторинг", zap.Int("completed", rep.Completed), zap.Int("violated", rep.Violated),
						zap.Int("skipped", rep.Skipped), zap.Int("failed", rep.Failed))
				}
				return err
			},
		},
		scheduler.Job{
			Name: "invoices",
			Next: scheduler.Every(cfg.InvoicePollInterval),
			Run: func(ctx context.Context) error {
				_, err := orderSvc.PollPayments(ctx)
				return err
			},
		},
		scheduler.Job{
			Name: "slot-stats",
			Next: scheduler.Daily(3, cfg.Location),
			Run: func(ctx context.Context) error {
				_, err := slotSvc.RefreshAll(ctx)
				return err
			},
		},
	)
	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	r := setupRouter(cfg, log, orderSvc, slotSvc, ledgerSvc, processor)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	srvErr := make(chan error, 1)
	go func() {
		log.Info("HTTP-сервер запущен", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		return fmt.Errorf("http: %w", err)
	case err := <-botErr:
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("telegram: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("остановка HTTP-сервера", zap.Error(err))
	}
	<-schedDone
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, session.Storage, error) {
	if cfg.Storage == "memory" {
		log.Warn("данные хранятся в памяти и пропадут после остановки")
		return storage.NewMemory(), &session.StorageMemory{}, nil
	}
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	botID, err := telegram.BotID(cfg.TelegramBotToken)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, &telegram.DBSessionStorage{DB: db.Conn, BotID: botID, Log: log.Named("session")}, nil
}

func newPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(log.Named("events")), nil
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// newRateCache возвращает общий кэш курсов в Redis или nil для кэша в памяти.
func newRateCache(cfg *config.Config, log *zap.Logger) rates.Cache {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("REDIS_URL не разобран, курсы кэшируются в памяти", zap.Error(err))
		return nil
	}
	return rates.NewRedisCache(redis.NewClient(opts))
}

// Настройка маршрутов
func setupRouter(cfg *config.Config, log *zap.Logger, orderSvc *orders.Service, slotSvc *slots.Service,
	ledgerSvc *ledger.Service, processor *withdrawals.Processor) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log.Named("http")))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := middleware.NewRateLimiter(cfg.HTTPRateLimit, int(cfg.HTTPRateLimit)*2)
	api := r.Group("/", middleware.AuthRequired(cfg.JWTSecret), limiter.Middleware())
	party.SetupRoutes(api.Group("/party"), ledgerSvc)
	slot.SetupRoutes(api.Group("/slots"), slotSvc)
	order.SetupRoutes(api.Group("/orders"), orderSvc)
	withdrawal.SetupRoutes(api.Group("/withdrawals"), processor)
	order.SetupAdminRoutes(api.Group("/admin", middleware.AdminOnly(cfg.AdminIDs)), orderSvc)

	return r
}
