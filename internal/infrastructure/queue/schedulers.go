package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"icepay-gateway/internal/config"
	"icepay-gateway/internal/domains/payment/job"
	"icepay-gateway/internal/shared"
	"icepay-gateway/pkg/logger"
)

// taskRegistrar is the subset of asynq.Scheduler used to register jobs.
type taskRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type Scheduler struct {
	scheduler *asynq.Scheduler
	registrar taskRegistrar
	cfg       config.WorkerConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, cfg config.WorkerConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		registrar: scheduler,
		cfg:       cfg,
	}
}

func (s *Scheduler) RegisterPaymentJobs() error {
	return s.registerRetryFailedPostbacksJob()
}

// ================================================
// Retry failed postbacks (every 10 minutes by default)
// ================================================
func (s *Scheduler) registerRetryFailedPostbacksJob() error {
	task, err := job.NewRetryPostbacksTask(s.cfg.RetryBatchSize)
	if err != nil {
		return err
	}

	_, err = s.registrar.Register(
		s.cfg.RetrySchedule,
		task,
		asynq.Queue(shared.QueuePayment),
		asynq.MaxRetry(0), // next tick retries anyway
		asynq.Timeout(5*time.Minute),
		asynq.Unique(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register RetryFailedPostbacks job", err)
		return err
	}

	logger.Info("Registered RetryFailedPostbacks", map[string]interface{}{
		"schedule": s.cfg.RetrySchedule,
		"batch":    s.cfg.RetryBatchSize,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
