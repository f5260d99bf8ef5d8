package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/agrotrace/agrotrace/internal/dashboard"
	"github.com/agrotrace/agrotrace/internal/export"
	"github.com/agrotrace/agrotrace/internal/lookup"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

const trendBatchResultTTL = 24 * time.Hour

func trendBatchResultKey(jobID string) string {
	return "jobs:trend_batch:" + jobID
}

// TrendBatchResult is the tally stored after a batch run.
type TrendBatchResult struct {
	JobID      string    `json:"jobId"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Skipped    int       `json:"skipped"`
	Files      []string  `json:"files"`
	FinishedAt time.Time `json:"finishedAt"`
}

// PDFRenderer converts built HTML into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// TrendBatchJob emits one trend PDF per orchard.
type TrendBatchJob struct {
	API       dashboard.API
	Lookups   *lookup.Service
	Renderer  PDFRenderer
	Redis     *redis.Client
	Logger    *slog.Logger
	OutputDir string
	clock     func() time.Time
}

// NewTrendBatchJob wires dependencies for the batch handler.
func NewTrendBatchJob(api dashboard.API, lookups *lookup.Service, renderer PDFRenderer, rdb *redis.Client, logger *slog.Logger, outputDir string) *TrendBatchJob {
	return &TrendBatchJob{
		API:       api,
		Lookups:   lookups,
		Renderer:  renderer,
		Redis:     rdb,
		Logger:    logger,
		OutputDir: outputDir,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskTypeTrendBatch tasks. Every orchard in the lookup
// list is attempted; orchards with no data in the window are skipped and
// per-orchard failures are logged without aborting the batch.
func (j *TrendBatchJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("trend batch: handler not configured")
	}
	var payload TrendBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Spec.Metric == "" {
		payload.Spec = dashboard.DefaultTrendSpec()
	}
	if err := payload.Spec.Validate(); err != nil {
		return asynq.SkipRetry
	}
	if payload.Tenant != "" {
		ctx = upstream.WithTenant(ctx, payload.Tenant)
	}

	logger := j.logger().With(slog.String("job_id", payload.JobID))
	logger.Info("starting trend batch")

	snap, err := j.Lookups.Load(ctx)
	if err != nil {
		logger.Error("load lookups", slog.Any("error", err))
		return err
	}
	if err := os.MkdirAll(j.OutputDir, 0o755); err != nil {
		return err
	}

	now := j.now()
	result := TrendBatchResult{JobID: payload.JobID, Files: []string{}}
	renderer := export.SVGCharts{}

	for _, verger := range snap.Vergers {
		result.Attempted++
		filters := payload.Filters
		id := verger.Value
		filters.VergerID = &id

		records, err := dashboard.FetchTrend(ctx, j.API, filters, payload.Spec)
		if err != nil {
			logger.Warn("trend fetch", slog.String("verger", verger.Label), slog.Any("error", err))
			continue
		}
		if len(records) == 0 {
			result.Skipped++
			logger.Info("no trend data", slog.String("verger", verger.Label))
			continue
		}

		meta := export.Meta{
			Title:       "Tendance " + verger.Label,
			GeneratedAt: now,
			PeriodStart: filters.StartDate,
			PeriodEnd:   filters.EndDate,
			Filters:     []export.FilterLine{{Label: "Verger", Value: verger.Label}},
		}
		html, err := export.TrendHTML(meta, records, payload.Spec, renderer)
		if err != nil {
			logger.Warn("build trend report", slog.String("verger", verger.Label), slog.Any("error", err))
			continue
		}
		pdf, err := j.Renderer.RenderHTML(ctx, html)
		if err != nil {
			logger.Warn("render trend pdf", slog.String("verger", verger.Label), slog.Any("error", err))
			continue
		}

		name := export.FileName("tendance-"+verger.Label, "pdf", now)
		if err := os.WriteFile(filepath.Join(j.OutputDir, name), pdf, 0o644); err != nil {
			logger.Warn("write trend pdf", slog.String("verger", verger.Label), slog.Any("error", err))
			continue
		}
		result.Succeeded++
		result.Files = append(result.Files, name)
	}

	result.FinishedAt = j.now()
	if err := j.storeResult(ctx, result); err != nil {
		logger.Warn("store batch result", slog.Any("error", err))
	}
	logger.Info("trend batch finished",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("attempted", result.Attempted),
		slog.Int("skipped", result.Skipped))
	return nil
}

func (j *TrendBatchJob) storeResult(ctx context.Context, result TrendBatchResult) error {
	if j.Redis == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return j.Redis.Set(ctx, trendBatchResultKey(result.JobID), data, trendBatchResultTTL).Err()
}

// LoadTrendBatchResult reads a stored batch tally.
func LoadTrendBatchResult(ctx context.Context, rdb *redis.Client, jobID string) (TrendBatchResult, error) {
	var result TrendBatchResult
	data, err := rdb.Get(ctx, trendBatchResultKey(jobID)).Bytes()
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(data, &result)
	return result, err
}

func (j *TrendBatchJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *TrendBatchJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
