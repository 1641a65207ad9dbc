// Command server wires the vendor onboarding service and keeps the
// process lifecycle small. Business logic lives in the internal
// packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	authmodels "zerina/internal/auth/models"
	"zerina/internal/auth/secrets"
	"zerina/internal/auth/session"
	userstore "zerina/internal/auth/store/user"
	"zerina/internal/captcha"
	"zerina/internal/identity"
	"zerina/internal/notify"
	"zerina/internal/platform/config"
	"zerina/internal/platform/httpserver"
	"zerina/internal/platform/logger"
	platformredis "zerina/internal/platform/redis"
	"zerina/internal/ratelimit"
	bucketstore "zerina/internal/ratelimit/store/bucket"
	httptransport "zerina/internal/transport/http"
	"zerina/internal/onboarding/metrics"
	"zerina/internal/onboarding/models"
	"zerina/internal/onboarding/service"
	appstore "zerina/internal/onboarding/store/application"
	docstore "zerina/internal/onboarding/store/document"
	"zerina/pkg/domain"
	"zerina/pkg/platform/audit"
	auditkafka "zerina/pkg/platform/audit/kafka"
	auditmemory "zerina/pkg/platform/audit/store/memory"
	auditpostgres "zerina/pkg/platform/audit/store/postgres"
	auditworker "zerina/pkg/platform/audit/worker"
	"zerina/pkg/platform/sentinel"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable stores when a DSN is configured, in-memory otherwise.
	var (
		apps       service.ApplicationStore
		docs       service.DocumentStore
		users      userDirectory
		storeTx    service.StoreTx
		auditStore audit.Store
		outbox     *auditpostgres.Store
	)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := applySchemas(ctx, db); err != nil {
			return err
		}
		apps = appstore.NewPostgresStore(db)
		docs = docstore.NewPostgresStore(db)
		users = userstore.NewPostgresStore(db)
		storeTx = service.NewSQLTx(db)
		outbox = auditpostgres.New(db)
		auditStore = outbox
	} else {
		apps = appstore.NewMemoryStore()
		docs = docstore.NewMemoryStore()
		users = userstore.NewMemoryStore()
		storeTx = service.NewShardedTx()
		auditStore = auditmemory.New()
	}
	if cfg.BootstrapAdminEmail != "" {
		if err := bootstrapAdmin(ctx, users, cfg.BootstrapAdminEmail, log); err != nil {
			return err
		}
	}

	auditPublisher := audit.NewPublisher(auditStore)

	vendorMetrics := metrics.New()

	svc := service.New(apps, docs, users, storeTx, service.Policy{
		Deposit: models.DepositPolicy{
			Enabled:     cfg.Deposit.Enabled,
			AmountCents: cfg.Deposit.AmountCents,
			Currency:    cfg.Deposit.Currency,
		},
		MinScore:            cfg.Identity.MinScore,
		VerificationTimeout: cfg.Identity.Timeout,
	},
		service.WithLogger(log),
		service.WithMetrics(vendorMetrics),
		service.WithAuditPublisher(auditPublisher),
		service.WithNotifier(notify.NewLogDispatcher(log)),
		service.WithIdentityClient(identityClient(cfg.Identity, log)),
	)

	issuer := session.NewIssuer(cfg.Session.SigningKey, cfg.Session.Issuer, cfg.Session.TTL)

	limiter, closeRedis, err := submissionLimiter(cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	handler := httptransport.NewVendorHandler(svc, issuer, issuer, log,
		httptransport.WithCaptchaGate(captchaGate(cfg.Captcha)),
		httptransport.WithSubmissionLimiter(limiter),
		httptransport.WithMetrics(vendorMetrics),
		httptransport.WithAuditPublisher(auditPublisher),
	)

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(log, handler))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting zerina", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		broker, err := auditkafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		defer broker.Close()

		g.Go(func() error {
			err := auditworker.New(outbox, broker, log).Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// userDirectory is the account surface main needs: the narrow store the
// vendor service consumes plus lookup and save for bootstrapping.
type userDirectory interface {
	service.UserStore
	FindByEmail(ctx context.Context, email string) (*authmodels.User, error)
	Save(ctx context.Context, u *authmodels.User) error
}

// bootstrapAdmin seeds an admin account when none exists for the
// configured email. The generated password is logged once; rotate it
// after first login.
func bootstrapAdmin(ctx context.Context, users userDirectory, email string, log *slog.Logger) error {
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	password, err := secrets.Generate()
	if err != nil {
		return fmt.Errorf("generate bootstrap password: %w", err)
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	now := time.Now().UTC()
	admin, err := authmodels.NewUser(domain.NewUserID(), email, hash, now)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	admin.Role = domain.RoleAdmin
	if err := users.Save(ctx, admin); err != nil {
		return fmt.Errorf("save bootstrap admin: %w", err)
	}

	log.Warn("bootstrap admin created", "email", email, "password", password)
	return nil
}

func applySchemas(ctx context.Context, db *sql.DB) error {
	for _, schema := range []string{
		userstore.Schema,
		appstore.Schema,
		docstore.Schema,
		auditpostgres.Schema,
	} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// identityClient picks the verification provider. Empty provider means
// verification is not required; "mock" never leaves the process.
func identityClient(cfg config.Identity, log *slog.Logger) identity.Client {
	switch cfg.Provider {
	case "":
		return nil
	case "mock":
		return &identity.Mock{}
	default:
		return identity.NewHTTPClient(cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Timeout,
			identity.WithHTTPLogger(log),
		)
	}
}

func captchaGate(cfg config.Captcha) captcha.Gate {
	if cfg.Secret == "" {
		return captcha.Noop{}
	}
	return captcha.NewTurnstile(cfg.Secret, cfg.Endpoint, 10*time.Second)
}

// submissionLimiter prefers the redis-backed sliding window when redis
// is configured so the quota holds across instances.
func submissionLimiter(cfg config.Server, log *slog.Logger) (*ratelimit.SubmissionLimiter, func(), error) {
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	var store ratelimit.Store
	closeRedis := func() {}
	if redisClient != nil {
		store = bucketstore.NewRedisStore(redisClient)
		closeRedis = func() {
			if err := redisClient.Close(); err != nil {
				log.Error("redis close failed", "error", err)
			}
		}
	} else {
		store = bucketstore.NewInMemoryStore()
	}

	return ratelimit.NewSubmissionLimiter(store, cfg.RateLimit.Limit, cfg.RateLimit.Window), closeRedis, nil
}
