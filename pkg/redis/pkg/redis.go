package redis

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	redistrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/redis/go-redis.v9"
)

// Config durations are in milliseconds.
type Config struct {
	Address         string
	Username        string
	Password        string
	DB              int
	Namespace       string
	Debug           bool
	TracingEnabled  bool
	MaxRetries      int
	MinRetryBackoff int
	MaxRetryBackoff int
	DialTimeout     int
	ReadTimeout     int
	WriteTimeout    int
	PoolFIFO        bool
	PoolSize        int
	PoolTimeout     int
	MinIdleConns    int
	ClientName      string
	TLS             *TLSConfig
}

func ReadConfig() *Config {
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	cfg := &Config{
		Address:         viper.GetString("redis.address"),
		Username:        viper.GetString("redis.username"),
		Password:        viper.GetString("redis.password"),
		DB:              viper.GetInt("redis.db"),
		Namespace:       viper.GetString("redis.namespace"),
		Debug:           viper.GetBool("redis.debug"),
		TracingEnabled:  viper.GetBool("redis.tracing_enabled"),
		MaxRetries:      viper.GetInt("redis.max_retries"),
		MinRetryBackoff: viper.GetInt("redis.min_retry_backoff"),
		MaxRetryBackoff: viper.GetInt("redis.max_retry_backoff"),
		DialTimeout:     viper.GetInt("redis.dial_timeout"),
		ReadTimeout:     viper.GetInt("redis.read_timeout"),
		WriteTimeout:    viper.GetInt("redis.write_timeout"),
		PoolFIFO:        viper.GetBool("redis.pool_fifo"),
		PoolSize:        viper.GetInt("redis.pool_size"),
		PoolTimeout:     viper.GetInt("redis.pool_timeout"),
		MinIdleConns:    viper.GetInt("redis.min_idle_conns"),
		ClientName:      viper.GetString("redis.client_name"),
	}
	if viper.GetBool("redis.tls.enabled") {
		cfg.TLS = &TLSConfig{
			Enabled:            true,
			CAFile:             viper.GetString("redis.tls.ca_file"),
			CertFile:           viper.GetString("redis.tls.cert_file"),
			KeyFile:            viper.GetString("redis.tls.key_file"),
			InsecureSkipVerify: viper.GetBool("redis.tls.insecure_skip_verify"),
		}
	}
	return cfg
}

func New(config *Config, opts ...Option) (*redis.Client, error) {
	o := &Opt{
		Options: &redis.Options{
			Addr: config.Address,
		},
	}
	if len(config.Username) > 0 {
		o.Username = config.Username
	}
	if len(config.Password) > 0 {
		o.Password = config.Password
	}
	if config.DB > 0 {
		o.DB = config.DB
	}
	if config.MaxRetries != 0 {
		o.MaxRetries = config.MaxRetries
	}
	if config.MinRetryBackoff != 0 {
		o.MinRetryBackoff = millis(config.MinRetryBackoff)
	}
	if config.MaxRetryBackoff != 0 {
		o.MaxRetryBackoff = millis(config.MaxRetryBackoff)
	}
	if config.DialTimeout != 0 {
		o.DialTimeout = millis(config.DialTimeout)
	}
	if config.ReadTimeout != 0 {
		o.ReadTimeout = millis(config.ReadTimeout)
	}
	if config.WriteTimeout != 0 {
		o.WriteTimeout = millis(config.WriteTimeout)
	}
	if config.PoolFIFO {
		o.PoolFIFO = true
	}
	if config.PoolSize != 0 {
		o.PoolSize = config.PoolSize
	}
	if config.PoolTimeout != 0 {
		o.PoolTimeout = millis(config.PoolTimeout)
	}
	if config.MinIdleConns != 0 {
		o.MinIdleConns = config.MinIdleConns
	}
	if config.TLS != nil && config.TLS.Enabled {
		tlsConfig, err := NewTLS(config.TLS)
		if err != nil {
			return nil, err
		}
		o.TLSConfig = tlsConfig
	}
	if len(config.ClientName) > 0 {
		o.ClientName = config.ClientName
	}

	for _, o0 := range opts {
		o0.Apply(o)
	}

	client := redis.NewClient(o.Options)
	client.AddHook(&nsHook{config.Namespace})
	client.AddHook(&debugHook{config.Debug})

	if config.TracingEnabled {
		redistrace.WrapClient(client, redistrace.WithServiceName("redis"))
	}
	return client, client.Ping(context.Background()).Err()
}

func millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

type Opt struct {
	*redis.Options
}

type Option interface {
	Apply(o *Opt)
}

type OptionFunc func(*Opt)

func (f OptionFunc) Apply(o *Opt) {
	f(o)
}

// Limiter interface used to implemented circuit breaker or rate limiter.
func Limiter(limiter redis.Limiter) Option {
	return OptionFunc(func(o *Opt) {
		o.Limiter = limiter
	})
}
