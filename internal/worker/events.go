package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ctroy978/edmpc/internal/config"
	"github.com/ctroy978/edmpc/internal/model"
)

// JobEvent is published whenever a job transitions state. WebSocket
// watchers subscribe to the job's channel and relay these verbatim.
type JobEvent struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisPublisher broadcasts job status changes over redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisPublisher(rdb *redis.Client, log zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb: rdb,
		log: log.With().Str("component", "job_events").Logger(),
	}
}

func (p *RedisPublisher) PublishJobStatus(ctx context.Context, jobID string, status model.JobStatus) {
	payload, err := json.Marshal(JobEvent{
		JobID:     jobID,
		Status:    string(status),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		p.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to encode job event")
		return
	}

	if err := p.rdb.Publish(ctx, config.CacheKey.JobEventsChannel(jobID), payload).Err(); err != nil {
		p.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to publish job event")
	}
}

// Enqueue pushes a job ID onto the scan queue for the worker to pick up.
func Enqueue(ctx context.Context, rdb *redis.Client, jobID string) error {
	return rdb.RPush(ctx, config.WorkerKey.ProcessScansQueue, jobID).Err()
}
