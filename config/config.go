package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Lookup     LookupConfig
	Notify     NotifyConfig
	Scheduling SchedulingConfig
}

type AppConfig struct {
	Port       string
	Env        string
	LogLevel   string
	CORSOrigin string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	TimeZone string
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// LookupConfig points at the customer/vehicle/employee profile services.
type LookupConfig struct {
	CustomerURL string
	VehicleURL  string
	EmployeeURL string
	Timeout     time.Duration
	CacheTTL    time.Duration
}

type NotifyConfig struct {
	Channel   string
	QueueSize int
}

type SchedulingConfig struct {
	TimeZone               string
	DefaultDurationMinutes int
	SlotPageSize           int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine, the environment alone is enough.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	lookupTimeout, err := time.ParseDuration(viper.GetString("LOOKUP_TIMEOUT"))
	if err != nil || lookupTimeout <= 0 {
		lookupTimeout = 3 * time.Second
	}

	cacheTTL, err := time.ParseDuration(viper.GetString("LOOKUP_CACHE_TTL"))
	if err != nil || cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	config := &Config{
		App: AppConfig{
			Port:       viper.GetString("APP_PORT"),
			Env:        viper.GetString("APP_ENV"),
			LogLevel:   viper.GetString("APP_LOG_LEVEL"),
			CORSOrigin: viper.GetString("APP_CORS_ORIGIN"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			TimeZone: viper.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetString("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
			PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: accessExpiry,
		},
		Lookup: LookupConfig{
			CustomerURL: viper.GetString("LOOKUP_CUSTOMER_URL"),
			VehicleURL:  viper.GetString("LOOKUP_VEHICLE_URL"),
			EmployeeURL: viper.GetString("LOOKUP_EMPLOYEE_URL"),
			Timeout:     lookupTimeout,
			CacheTTL:    cacheTTL,
		},
		Notify: NotifyConfig{
			Channel:   viper.GetString("NOTIFY_CHANNEL"),
			QueueSize: viper.GetInt("NOTIFY_QUEUE_SIZE"),
		},
		Scheduling: SchedulingConfig{
			TimeZone:               viper.GetString("SCHEDULING_TIMEZONE"),
			DefaultDurationMinutes: viper.GetInt("SCHEDULING_DEFAULT_DURATION_MINUTES"),
			SlotPageSize:           viper.GetInt("SCHEDULING_SLOT_PAGE_SIZE"),
		},
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_LOG_LEVEL", "info")
	viper.SetDefault("APP_CORS_ORIGIN", "*")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_POOL_SIZE", 20)
	viper.SetDefault("NOTIFY_CHANNEL", "appointments.notifications")
	viper.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	viper.SetDefault("SCHEDULING_TIMEZONE", "UTC")
	viper.SetDefault("SCHEDULING_DEFAULT_DURATION_MINUTES", 60)
	viper.SetDefault("SCHEDULING_SLOT_PAGE_SIZE", 100)
}

// Location resolves the workshop time zone used to interpret dates and business hours.
func (c SchedulingConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// durationOr parses key as a duration, falling back when unset or invalid
func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
