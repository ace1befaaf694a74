// Package queue is a priority job queue with job id de-duplication, backed by
// Redis or, when Redis is unavailable, by process memory.
package queue

import (
	"context"
	"errors"
	"time"

	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

// Priority orders jobs, lower values run first.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 50
	PriorityLow    Priority = 100
)

const (
	GatherAssetProfile         = "GATHER_ASSET_PROFILE"
	GatherHistoricalMarketData = "GATHER_HISTORICAL_MARKET_DATA"
)

// ErrEmpty is returned by Pop when no job is waiting.
var ErrEmpty = errors.New("queue empty")

// JobData identifies the asset a job works on. Date is the first day to gather
// historical data for, nil means the default look back.
type JobData struct {
	DataSource spentity.DataSource `json:"dataSource"`
	Symbol     string              `json:"symbol"`
	Date       *time.Time          `json:"date,omitempty"`
}

type Job struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Data       JobData   `json:"data"`
	Priority   Priority  `json:"priority"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue is implemented by RedisQueue and MemoryQueue.
type Queue interface {
	// Add enqueues job. It returns false without error when a job with the
	// same ID is already waiting or running.
	Add(ctx context.Context, job Job) (bool, error)
	// Pop removes and returns the next job, or ErrEmpty.
	Pop(ctx context.Context) (*Job, error)
	// Complete releases the job ID so that it can be enqueued again.
	Complete(ctx context.Context, id string) error
	Len(ctx context.Context) (int64, error)
}

// score sorts by priority first and enqueue time second.
func score(j Job) float64 {
	return float64(j.Priority)*1e13 + float64(j.EnqueuedAt.UnixMilli())
}
