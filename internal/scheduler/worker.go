package scheduler

import (
	"context"
	"fmt"

	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ImportProcessor runs an import job received from the queue.
type ImportProcessor interface {
	ProcessImport(ctx context.Context, payload ImportRunPayload) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	imports ImportProcessor
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, imports ImportProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		imports: imports,
		log:     log,
	}

	mux.HandleFunc(TaskImportRun, w.handleImportRun)

	return w, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return
	}

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
}

func (w *Worker) handleImportRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseImportRunPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	w.log.WithJobID(payload.JobID).Info("import job received", "rows", len(payload.Rows))
	return w.imports.ProcessImport(ctx, payload)
}
