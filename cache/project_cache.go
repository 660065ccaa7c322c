package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"worksense/backend/config"
	"worksense/backend/logging"
	"worksense/backend/models"
)

func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// ProjectCache is a read-through cache for project documents. Cache failures
// degrade to store reads, they never fail a request.
type ProjectCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProjectCache(rdb *redis.Client) *ProjectCache {
	return &ProjectCache{rdb: rdb, ttl: 5 * time.Minute}
}

func (c *ProjectCache) key(projectID string) string {
	return "project:" + projectID
}

func (c *ProjectCache) Get(ctx context.Context, projectID string) (*models.Project, bool) {
	data, err := c.rdb.Get(ctx, c.key(projectID)).Bytes()
	if err != nil {
		return nil, false
	}

	var project models.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, false
	}
	return &project, true
}

func (c *ProjectCache) Set(ctx context.Context, project *models.Project) {
	data, err := json.Marshal(project)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(project.ID.Hex()), data, c.ttl).Err(); err != nil {
		logging.Logger.Warnf("Event ID: CACHE_SET_FAILED, Description: Failed to cache project %s: %v", project.ID.Hex(), err)
	}
}

func (c *ProjectCache) Invalidate(ctx context.Context, projectID string) {
	if err := c.rdb.Del(ctx, c.key(projectID)).Err(); err != nil {
		logging.Logger.Warnf("Event ID: CACHE_INVALIDATE_FAILED, Description: Failed to invalidate project %s: %v", projectID, err)
	}
}
