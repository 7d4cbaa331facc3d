package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/punchlog/timeclock-service/internal/config"
	"github.com/punchlog/timeclock-service/internal/utils"
)

// ConnectDB opens the pgx pool with a short retry loop so the service
// survives the database coming up after it in a fresh deployment.
func ConnectDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConnIdleTime = 2 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	var pool *pgxpool.Pool
	backoff := time.Second
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.ConnectConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				utils.Logger.Info("connected to database")
				return pool, nil
			} else {
				err = pingErr
				pool.Close()
			}
		}
		utils.Logger.WithField("attempt", attempt).Warnf("database not ready: %v", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, err
}
