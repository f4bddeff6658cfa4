package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

// JobEventsChannel returns the pub/sub channel carrying status events for a job.
func (r *CacheKeyStruct) JobEventsChannel(jobID string) string {
	return fmt.Sprintf("job:%s:events", jobID)
}

var CacheKey = &CacheKeyStruct{}
