package cmd

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"interviewace/internal/repo"
)

type ServerConfig struct {
	Host            string
	Port            string
	ShutdownTimeout time.Duration
	SSEHeartbeat    time.Duration
}

type StorageConfig struct {
	Backend  string
	Key      string
	FilePath string
	DBTable  string
}

// loadConfig reads .env, config/config.yaml and the environment into viper.
func loadConfig(logger *zap.Logger) error {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded", zap.Error(err))
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "5s")
	viper.SetDefault("server.sse_heartbeat", "60s")
	viper.SetDefault("logger.level", "INFO")
	viper.SetDefault("storage.backend", string(repo.BackendFile))
	viper.SetDefault("storage.key", repo.DefaultKey)
	viper.SetDefault("storage.file.path", "data")
	viper.SetDefault("db.table", "app_state")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		logger.Warn("No config file found, using defaults and environment")
	}
	return nil
}

func readServerConfig() ServerConfig {
	return ServerConfig{
		Host:            viper.GetString("server.host"),
		Port:            viper.GetString("server.port"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		SSEHeartbeat:    viper.GetDuration("server.sse_heartbeat"),
	}
}

func readStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:  viper.GetString("storage.backend"),
		Key:      viper.GetString("storage.key"),
		FilePath: viper.GetString("storage.file.path"),
		DBTable:  viper.GetString("db.table"),
	}
}
