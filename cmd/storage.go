package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"interviewace/internal/repo"
	"interviewace/pkg/database/client"
	redis "interviewace/pkg/redis/pkg"
)

// openRepository connects the configured state backend. The returned close
// function releases its client.
func openRepository(ctx context.Context, cfg StorageConfig, logger *zap.Logger) (repo.Repository, func(), error) {
	backend, err := repo.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Opening state storage", zap.String("backend", string(backend)), zap.String("key", cfg.Key))

	switch backend {
	case repo.BackendMemory:
		return repo.NewMemory(nil), func() {}, nil

	case repo.BackendRedis:
		rdb, err := redis.New(redis.ReadConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return repo.NewRedis(rdb, cfg.Key), func() {
			if err := rdb.Close(); err != nil {
				logger.Error("can not close redis client", zap.Error(err))
			}
		}, nil

	case repo.BackendMySQL:
		db, err := client.Open("mysql_interviewace", client.ReadConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("can not close database", zap.Error(err))
			}
		}
		r, err := repo.NewMySQL(db, cfg.DBTable, cfg.Key)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		if err := r.Migrate(ctx); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("can not init my database: %w", err)
		}
		return r, closeDB, nil
	}

	return repo.NewFile(cfg.FilePath, cfg.Key), func() {}, nil
}
