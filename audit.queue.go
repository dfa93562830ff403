package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuditQueue is the queue id carrying mirrored audit entries.
const AuditQueue = "audit"

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a queue of audit entries.
type Queuer interface {
	Push(ctx context.Context, qid string, entry LogEntry) error
	Pop(ctx context.Context, qids ...string) (string, LogEntry, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Push enqueues an audit entry onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, entry LogEntry) error {
	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, entryBytes).Err()
}

// Pop returns the first dequeued audit entry from the list of queue ids.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, LogEntry, error) {
	var entry LogEntry
	var qid string
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return qid, entry, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &entry); err != nil {
		return qid, entry, err
	}
	qid = infos[0]
	return qid, entry, nil
}
