// Package app wires configuration into stores, telemetry sinks and the session manager shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"

	"sessionguard/internal/audit"
	auditrepo "sessionguard/internal/audit/repository"
	"sessionguard/internal/config"
	"sessionguard/internal/db"
	"sessionguard/internal/device"
	"sessionguard/internal/risk"
	sessionrepo "sessionguard/internal/session/repository"
	"sessionguard/internal/session/service"
	"sessionguard/internal/telemetry"
	oteladapter "sessionguard/internal/telemetry/otel"
	"sessionguard/internal/telemetry/producer"
	userrepo "sessionguard/internal/user/repository"
	userservice "sessionguard/internal/user/service"
)

// App holds the wired components. Close releases them in reverse order of creation.
type App struct {
	Config   *config.Config
	DB       *sql.DB // nil when running on in-memory stores
	Redis    *redis.Client
	Policy   *risk.OPAPolicy
	Manager  *service.Manager
	Recorder *audit.Recorder

	closers []func(context.Context) error
}

// New builds the App from cfg. With an empty DATABASE_URL all stores are in memory, which is only
// suitable for a single process.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	providers, err := oteladapter.NewProviders(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, cfg.OTelInsecure)
	if err != nil {
		return nil, err
	}
	providers.SetGlobal()
	a.closers = append(a.closers, providers.Shutdown)

	sinks := telemetry.Fanout{oteladapter.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.SecurityEventsTopic)
	if err != nil {
		return nil, err
	}
	if kafkaProducer != nil {
		sinks = append(sinks, kafkaProducer)
		a.closers = append(a.closers, func(context.Context) error { return kafkaProducer.Close() })
		log.Printf("app: publishing security events to kafka topic %s", cfg.SecurityEventsTopic)
	}

	var (
		sessions sessionrepo.Repository
		remember sessionrepo.RememberTokenRepository
		events   auditrepo.Repository
		policies userrepo.Repository
	)
	if cfg.DatabaseURL != "" {
		a.DB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return a.DB.Close() })
		sessions = sessionrepo.NewPostgresRepository(a.DB)
		remember = sessionrepo.NewPostgresRememberTokenRepository(a.DB)
		events = auditrepo.NewPostgresRepository(a.DB)
		policies = userrepo.NewPostgresRepository(a.DB)
	} else {
		log.Println("app: DATABASE_URL not set, using in-memory stores")
		sessions = sessionrepo.NewMemoryRepository()
		remember = sessionrepo.NewMemoryRememberTokenRepository()
		events = auditrepo.NewMemoryRepository()
		policies = userrepo.NewMemoryRepository()
	}
	if cfg.RedisURL != "" {
		a.Redis, err = db.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return a.Redis.Close() })
		policies = userrepo.NewCachedRepository(policies, a.Redis, cfg.PolicyCacheTTL())
	}

	if cfg.RiskPolicyFile != "" {
		a.Policy, err = risk.LoadOPAPolicy(ctx, cfg.RiskPolicyFile, cfg.RiskBlockScore)
	} else {
		a.Policy, err = risk.NewOPAPolicy(ctx, risk.DefaultRegoPolicy, cfg.RiskBlockScore)
	}
	if err != nil {
		return nil, err
	}

	a.Recorder = audit.NewRecorder(events, sinks)
	policySvc := userservice.NewPolicyService(policies, userservice.Defaults{
		SessionTimeout:        cfg.SessionDefaultTimeout,
		MaxConcurrentSessions: cfg.SessionDefaultMaxConcurrent,
		RememberMeEnabled:     cfg.SessionDefaultRememberMe,
	})
	analyzer := risk.NewAnalyzer(a.Recorder, sessions, policySvc, a.Policy, risk.Config{
		FailedLoginWindow:     cfg.RiskFailedLoginWindow(),
		ActivityWindow:        cfg.RiskActivityWindow(),
		HardBlockFailedLogins: cfg.RiskHardBlockFailedLogins,
	})
	a.Manager = service.NewManager(sessions, remember, a.Recorder, analyzer, policySvc,
		device.NewFingerprinter(nil), service.Config{
			RememberTokenTTL:    cfg.RememberTokenTTL(),
			RotateRememberOnUse: cfg.RememberTokenRotateOnUse,
		})
	return a, nil
}

// Close releases resources in reverse order and joins their errors.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
