package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ctroy978/edmpc/internal/config"
	"github.com/ctroy978/edmpc/internal/service"
)

const ScanPollTimeout = 1 * time.Second

// ScanWorker drains queued job IDs and runs the scan pipeline for each.
// Jobs are enqueued by the HTTP layer so uploads return immediately.
type ScanWorker struct {
	jobs *service.GradingJobService
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewScanWorker(jobs *service.GradingJobService, rdb *redis.Client, log zerolog.Logger) *ScanWorker {
	return &ScanWorker{
		jobs: jobs,
		rdb:  rdb,
		log:  log.With().Str("component", "scan_worker").Logger(),
	}
}

func (w *ScanWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScanWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. ScanWorker stopping.")
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScanPollTimeout, config.WorkerKey.ProcessScansQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			jobID := item[1]
			w.process(ctx, jobID)
		}
	}
}

func (w *ScanWorker) process(ctx context.Context, jobID string) {
	start := time.Now()
	w.log.Info().Str("job_id", jobID).Msg("Processing scans")

	numStudents, numErrors, err := w.jobs.ProcessScans(ctx, jobID)
	if err != nil {
		w.log.Error().Err(err).Str("job_id", jobID).Msg("Scan processing failed")
		return
	}

	w.log.Info().
		Str("job_id", jobID).
		Int("students", numStudents).
		Int("errors", numErrors).
		Dur("elapsed", time.Since(start)).
		Msg("Scan processing finished")
}
