package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the full configuration surface for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Scylla    ScyllaConfig    `mapstructure:"scylla"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Blast     BlastConfig     `mapstructure:"blast"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Telephony TelephonyConfig `mapstructure:"telephony"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	HealthQuery     string        `mapstructure:"health_query"`
}

type ScyllaConfig struct {
	Hosts             []string      `mapstructure:"hosts"`
	Port              int           `mapstructure:"port"`
	Keyspace          string        `mapstructure:"keyspace"`
	Consistency       string        `mapstructure:"consistency"`
	Timeout           time.Duration `mapstructure:"timeout"`
	DisableInitSchema bool          `mapstructure:"disable_init_schema"`
}

type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	ClientID       string        `mapstructure:"client_id"`
	OutcomeTopic   string        `mapstructure:"outcome_topic"`
	DetectionTopic string        `mapstructure:"detection_topic"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type TelemetryConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	ServiceName       string        `mapstructure:"service_name"`
	SampleRatio       float64       `mapstructure:"sample_ratio"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	TracingEnabled    bool          `mapstructure:"tracing_enabled"`
	Propagators       []string      `mapstructure:"propagators"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	CollectorProtocol string        `mapstructure:"collector_protocol"`
}

// BlastConfig tunes the dispatch loop and its callbacks.
type BlastConfig struct {
	// InterCallDelay paces sequential dialing; one call in flight at a time.
	InterCallDelay time.Duration `mapstructure:"inter_call_delay"`
	// PublicBaseURL is the externally reachable root for provider callbacks.
	PublicBaseURL string `mapstructure:"public_base_url"`
	// FallbackAudioURL plays when a campaign has no voicemail recording.
	FallbackAudioURL string `mapstructure:"fallback_audio_url"`
	// MaxConcurrentPerTenant caps simultaneous blasts for one tenant.
	MaxConcurrentPerTenant int `mapstructure:"max_concurrent_per_tenant"`
	// AuditLogPath is the append-only CSV call log location.
	AuditLogPath string `mapstructure:"audit_log_path"`
}

// BillingConfig tunes usage metering and the entitlement gate.
type BillingConfig struct {
	PeriodDays     int    `mapstructure:"period_days"`
	PerCallCents   int64  `mapstructure:"per_call_cents"`
	FreeCallCap    int64  `mapstructure:"free_call_cap"`
	StripeKey      string `mapstructure:"stripe_key"`
	StripeEndpoint string `mapstructure:"stripe_endpoint"`
}

// TelephonyConfig selects the dialer implementation and the operator
// fallback credentials consulted when a tenant has no profile of its own.
type TelephonyConfig struct {
	ProviderName   string        `mapstructure:"provider_name"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	FallbackAccountSID string `mapstructure:"fallback_account_sid"`
	FallbackAuthToken  string `mapstructure:"fallback_auth_token"`
	FallbackFromNumber string `mapstructure:"fallback_from_number"`
	FallbackNumberPool string `mapstructure:"fallback_number_pool"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("VOICEDROP")
	v.SetEnvKeyReplacer(NewEnvReplacer())

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("blast.inter_call_delay", 2*time.Second)
	v.SetDefault("blast.max_concurrent_per_tenant", 1)
	v.SetDefault("blast.audit_log_path", "blast-log.csv")
	v.SetDefault("billing.period_days", 30)
	v.SetDefault("billing.per_call_cents", 2)
	v.SetDefault("billing.free_call_cap", 100)
	v.SetDefault("billing.stripe_endpoint", "https://api.stripe.com")
	v.SetDefault("telephony.provider_name", "twilio")
	v.SetDefault("telephony.request_timeout", 10*time.Second)
}

// NewEnvReplacer standardizes environment variable names.
func NewEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}
