package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

// Flags
var (
	modeFlag       = flag.String("mode", "", "application mode: ride-service, driver-service or standalone")
	configPathFlag = flag.String("config", "config.yaml", "path to the YAML config file")
	helpFlag       = flag.Bool("help", false, "show help")
)

// Errors
var (
	ErrModeNotProvided   = errors.New("mode flag not provided")
	ErrUnknownMode       = errors.New("unknown mode")
	ErrUnknownStorage    = errors.New("unknown storage driver")
	ErrRabbitHostMissing = errors.New("rabbitmq host is required")
	ErrJWTSecretMissing  = errors.New("jwt secret is required")
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode types.ServiceMode

		Log      LogConfig
		Database DatabaseConfig
		Storage  StorageConfig
		RabbitMQ RabbitMQConfig
		Services ServicesConfig
		Auth     Auth
		LongPoll LongPollConfig
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"INFO"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"dispatch_user"`
		Password string `env:"DATABASE_PASSWORD" default:"dispatch_pass"`
		Database string `env:"DATABASE_DATABASE" default:"dispatch_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`

		Migrate bool `env:"DATABASE_MIGRATE" default:"true"`
	}

	StorageConfig struct {
		Driver string `env:"STORAGE_DRIVER" default:"postgres"`
	}

	RabbitMQConfig struct {
		Host        string        `env:"RABBITMQ_HOST" default:"localhost"`
		Port        string        `env:"RABBITMQ_PORT" default:"5672"`
		User        string        `env:"RABBITMQ_USER" default:"guest"`
		Password    string        `env:"RABBITMQ_PASSWORD" default:"guest"`
		RetryDelay  time.Duration `env:"RABBITMQ_RETRY_DELAY" default:"5s"`
		DialTimeout time.Duration `env:"RABBITMQ_DIAL_TIMEOUT" default:"10s"`
		AckPolicy   string        `env:"RABBITMQ_ACK_POLICY" default:"requeue"`
	}

	ServicesConfig struct {
		RideService   string `env:"SERVICES_RIDE_SERVICE" default:"3000"`
		DriverService string `env:"SERVICES_DRIVER_SERVICE" default:"3001"`
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	LongPollConfig struct {
		MaxTimeout time.Duration `env:"LONGPOLL_MAX_TIMEOUT" default:"30s"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (int32, int32, time.Duration, time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// Bus converts the RabbitMQ section into message bus settings.
func (c RabbitMQConfig) Bus(service string) (rabbit.Config, error) {
	policy, err := rabbit.ParseAckPolicy(c.AckPolicy)
	if err != nil {
		return rabbit.Config{}, err
	}
	return rabbit.Config{
		URL:         c.GetDSN(),
		RetryDelay:  c.RetryDelay,
		DialTimeout: c.DialTimeout,
		AckPolicy:   policy,
		Service:     service,
	}, nil
}

func NewConfig() (*Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}
	return Load(*configPathFlag, *modeFlag)
}

// Load reads the config file and environment for the given mode.
func Load(filepath, mode string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if mode == "" {
		return nil, ErrModeNotProvided
	}
	cfg.Mode = types.ServiceMode(mode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration the application cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case types.RideService, types.DriverService, types.Standalone:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode))
	}

	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownStorage, c.Storage.Driver))
	}

	if c.RabbitMQ.Host == "" {
		errs = append(errs, ErrRabbitHostMissing)
	}
	if _, err := rabbit.ParseAckPolicy(c.RabbitMQ.AckPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, ErrJWTSecretMissing)
	}
	if !logger.ValidateLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.LongPoll.MaxTimeout <= 0 {
		errs = append(errs, errors.New("long-poll max timeout must be positive"))
	}

	return errors.Join(errs...)
}

// HelpRequested reports whether --help was passed.
func HelpRequested() bool {
	if !flag.Parsed() {
		flag.Parse()
	}
	return *helpFlag
}
