package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/acme/voicedrop/internal/blastlog"
	"github.com/acme/voicedrop/internal/config"
	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/infra/db"
	"github.com/acme/voicedrop/internal/infra/redis"
	"github.com/acme/voicedrop/internal/queue"
	"github.com/acme/voicedrop/internal/repository"
	pgrepo "github.com/acme/voicedrop/internal/repository/postgres"
	scyllarepo "github.com/acme/voicedrop/internal/repository/scylla"
	amdsvc "github.com/acme/voicedrop/internal/service/amd"
	billingsvc "github.com/acme/voicedrop/internal/service/billing"
	blastsvc "github.com/acme/voicedrop/internal/service/blast"
	"github.com/acme/voicedrop/internal/service/concurrency"
	"github.com/acme/voicedrop/internal/service/resolver"
	"github.com/acme/voicedrop/internal/stripe"
	"github.com/acme/voicedrop/internal/telephony"
	telephonyMock "github.com/acme/voicedrop/internal/telephony/mock"
	"github.com/acme/voicedrop/internal/telephony/twilio"
	"github.com/acme/voicedrop/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *db.Postgres
	Scylla   *db.Scylla
	Redis    *redis.Client
	Kafka    *queue.Kafka

	// lazily initialised components
	components struct {
		once         sync.Once
		repositories *repositories
		services     *services
		publisher    *queue.OutcomePublisher
		limiter      *concurrency.Limiter
	}
}

type repositories struct {
	Profiles  repository.TenantProfileRepository
	Billing   repository.BillingRepository
	Campaigns repository.CampaignRepository
	Stats     repository.BlastStatsRepository
	CallLogs  repository.CallLogStore
}

type services struct {
	Blast   *blastsvc.Service
	Billing *billingsvc.Service
	AMD     *amdsvc.Correlator
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("bootstrap postgres: %w", err)
	}

	scylla, err := db.NewScylla(cfg.Scylla)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scylla: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	kafka, err := queue.NewKafka(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("bootstrap kafka: %w", err)
	}

	container := &Container{
		Config:   cfg,
		Logger:   lg,
		Postgres: pg,
		Scylla:   scylla,
		Redis:    redisClient,
		Kafka:    kafka,
	}

	return container, nil
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		repos := &repositories{
			Profiles:  pgrepo.NewTenantProfileRepository(c.Postgres.DB()),
			Billing:   pgrepo.NewBillingRepository(c.Postgres.DB()),
			Campaigns: pgrepo.NewCampaignRepository(c.Postgres.DB()),
			Stats:     pgrepo.NewBlastStatsRepository(c.Postgres.DB()),
			CallLogs:  scyllarepo.NewCallLogStore(c.Scylla.Session()),
		}

		publisher := queue.NewOutcomePublisher(c.Kafka, c.Config.Kafka.OutcomeTopic, c.Config.Kafka.DetectionTopic)
		limiter := concurrency.NewLimiter(c.Redis.Inner(), c.Config.Blast.MaxConcurrentPerTenant, 0)

		var reporter billingsvc.UsageReporter
		if c.Config.Billing.StripeKey != "" {
			reporter = stripe.NewReporter(c.Config.Billing.StripeKey, c.Config.Billing.StripeEndpoint)
		}
		billing := billingsvc.NewService(repos.Billing, reporter, c.Config.Billing, c.Logger)

		res := resolver.New(repos.Profiles, c.dialerFactory(), c.fallbackProfile(), c.Logger)

		blast := blastsvc.NewService(
			res,
			billing,
			repos.CallLogs,
			blastlog.NewCSVLog(c.Config.Blast.AuditLogPath),
			publisher,
			repos.Stats,
			limiter,
			blastsvc.Options{
				InterCallDelay:         c.Config.Blast.InterCallDelay,
				PublicBaseURL:          c.Config.Blast.PublicBaseURL,
				MaxConcurrentPerTenant: c.Config.Blast.MaxConcurrentPerTenant,
			},
			c.Logger,
		)

		amd := amdsvc.New(repos.CallLogs, publisher, c.Logger)

		c.components.repositories = repos
		c.components.publisher = publisher
		c.components.limiter = limiter
		c.components.services = &services{
			Blast:   blast,
			Billing: billing,
			AMD:     amd,
		}
	})
}

// dialerFactory selects the provider implementation. Anything other than the
// mock name dials Twilio with the tenant's credentials.
func (c *Container) dialerFactory() telephony.DialerFactory {
	if c.Config.Telephony.ProviderName == "mock" {
		mock := telephonyMock.NewDialer()
		return func(telephony.Credentials) telephony.Dialer { return mock }
	}

	timeout := c.Config.Telephony.RequestTimeout
	return func(creds telephony.Credentials) telephony.Dialer {
		return twilio.NewClient(creds, timeout)
	}
}

// fallbackProfile builds the operator-level credentials used when a tenant
// has no calling profile row. Returns nil when none are configured.
func (c *Container) fallbackProfile() *domain.TenantCallingProfile {
	t := c.Config.Telephony
	if t.FallbackAccountSID == "" || t.FallbackAuthToken == "" || t.FallbackFromNumber == "" {
		return nil
	}
	return &domain.TenantCallingProfile{
		AccountSID:        t.FallbackAccountSID,
		AuthToken:         t.FallbackAuthToken,
		DefaultFromNumber: t.FallbackFromNumber,
		NumberPool:        t.FallbackNumberPool,
	}
}

// Repositories exposes initialized repositories.
func (c *Container) Repositories() *repositories {
	c.initComponents()
	return c.components.repositories
}

// Services exposes initialized services.
func (c *Container) Services() *services {
	c.initComponents()
	return c.components.services
}

// Publisher exposes the Kafka outcome publisher.
func (c *Container) Publisher() *queue.OutcomePublisher {
	c.initComponents()
	return c.components.publisher
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.components.publisher != nil {
		if err := c.components.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher close: %w", err))
		}
	}
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// EnsureTopics ensures the outcome and detection topics exist.
func (c *Container) EnsureTopics(ctx context.Context) error {
	topics := []string{c.Config.Kafka.OutcomeTopic, c.Config.Kafka.DetectionTopic}
	return c.Kafka.EnsureTopics(ctx, topics, 12, 1)
}
