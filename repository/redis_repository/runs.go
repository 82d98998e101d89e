package redis_repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tool-pressure/xiaohongshu/models"
)

const (
	runKeyPrefix = "run:"

	// Finished runs stay around for a day; the poll endpoint only makes
	// sense for recent tasks.
	runTTL = 24 * time.Hour
)

// runRepository stores runs as JSON blobs in Redis.
type runRepository struct {
	client *redis.Client
}

func NewRunRepository(client *redis.Client) *runRepository {
	return &runRepository{client: client}
}

func (r *runRepository) SaveRun(ctx context.Context, run models.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, runKeyPrefix+run.ID, data, runTTL).Err()
}

func (r *runRepository) GetRun(ctx context.Context, id string) (models.Run, error) {
	val, err := r.client.Get(ctx, runKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Run{}, models.ErrRunNotFound
		}
		return models.Run{}, err
	}

	var run models.Run
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return models.Run{}, err
	}
	return run, nil
}

func (r *runRepository) ListRuns(ctx context.Context) ([]models.Run, error) {
	keys, err := r.client.Keys(ctx, runKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	var runs []models.Run
	for _, key := range keys {
		val, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		var run models.Run
		if err := json.Unmarshal([]byte(val), &run); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
