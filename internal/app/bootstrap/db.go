// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/circlehub/internal/app/system/indexes"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and, when configured, Redis. Both are pinged
// so a misconfigured backend fails startup rather than the first request.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("circlehub")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("ping redis: %w", err)
		}
		deps.Redis = rdb
		logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
	} else {
		logger.Info("redis_addr not set; realtime events stay in this process")
	}

	return deps, nil
}

// EnsureSchema attaches collection validators and reconciles indexes. Index
// failures abort startup: connections rely on the unique pair_key index.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("schema validators", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("indexes", zap.Error(err))
		return err
	}
	logger.Info("schema ready")
	return nil
}
