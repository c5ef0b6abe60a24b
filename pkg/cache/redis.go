package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quizfunnel/internal/models"

	"github.com/go-redis/redis/v8"
)

// RedisCache holds the public (active-only) view of reconciled quiz trees so
// respondent traffic does not hit postgres for every session start. Entries
// are dropped whenever a reconciliation commits.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{
		client: client,
		ctx:    context.Background(),
	}
}

func (c *RedisCache) SetQuizView(view *models.QuizView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}

	key := quizKey(view.ID)
	return c.client.Set(c.ctx, key, data, 24*time.Hour).Err()
}

func (c *RedisCache) GetQuizView(quizID uint) (*models.QuizView, error) {
	data, err := c.client.Get(c.ctx, quizKey(quizID)).Bytes()
	if err != nil {
		return nil, err
	}

	var view models.QuizView
	err = json.Unmarshal(data, &view)
	return &view, err
}

func (c *RedisCache) InvalidateQuiz(quizID uint) error {
	return c.client.Del(c.ctx, quizKey(quizID)).Err()
}

func quizKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d", quizID)
}
