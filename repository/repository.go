package repository

import (
	"context"

	"github.com/tool-pressure/xiaohongshu/config"
	"github.com/tool-pressure/xiaohongshu/models"
	"github.com/tool-pressure/xiaohongshu/repository/redis_repository"
)

// RunRepository defines the interface for run storage
type RunRepository interface {
	SaveRun(ctx context.Context, run models.Run) error
	GetRun(ctx context.Context, id string) (models.Run, error)
	ListRuns(ctx context.Context) ([]models.Run, error)
}

// NewRunRepository connects to Redis when it is reachable and falls
// back to the in-memory store otherwise, so a dev setup without Redis
// still works.
func NewRunRepository(ctx context.Context, cfg config.RedisConfig) RunRepository {
	client, err := redis_repository.Conn(ctx, cfg.Host, cfg.Port, cfg.Password, cfg.DB, cfg.Timeout)
	if err != nil {
		return NewInMemoryRunRepository()
	}
	return redis_repository.NewRunRepository(client)
}
