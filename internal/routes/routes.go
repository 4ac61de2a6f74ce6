package routes

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/merchant_payouts/internal/config"
	"github.com/congo-pay/merchant_payouts/internal/ledger"
	"github.com/congo-pay/merchant_payouts/internal/merchant"
	"github.com/congo-pay/merchant_payouts/internal/metrics"
	"github.com/congo-pay/merchant_payouts/internal/middleware"
	"github.com/congo-pay/merchant_payouts/internal/notification"
	"github.com/congo-pay/merchant_payouts/internal/payouts"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Store overrides the ledger backend. When nil, Postgres is used if DB is
	// set, otherwise an in-memory store seeded with the development fixtures.
	Store ledger.Store
	// Processor overrides the payout rail. Defaults to the simulated rail.
	Processor payouts.Processor
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in the form: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	app.Use(metrics.Middleware())

	RegisterHealthRoutes(app, d)

	store := d.Store
	if store == nil {
		if d.DB != nil {
			store = ledger.NewPostgresStore(d.DB)
		} else {
			store = ledger.NewInMemory(ledger.DevelopmentAccount)
			ledger.Seed(store, ledger.Fixtures(time.Now(), ledger.DevelopmentAccount.Currency))
		}
	}

	processor := d.Processor
	if processor == nil {
		processor = payouts.SimulatedProcessor{Deferred: d.Cfg.DeferSettlement}
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	payoutSvc := payouts.NewService(store, processor, notifier)

	api := app.Group("/api")
	RegisterMerchantRoutes(api, merchant.NewHandler(store))
	RegisterPayoutRoutes(api, payouts.NewHandler(payoutSvc),
		middleware.PayoutRateLimit(d.Cache, d.Cfg.PayoutRateLimit),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)

	return nil
}
