package main

import (
	"github.com/rs/zerolog/log"

	"icepay-gateway/internal/config"
	"icepay-gateway/internal/infrastructure/queue"
)

type asynqScheduler struct {
	*queue.Scheduler
}

func setupScheduler(cfg *config.Config) *asynqScheduler {
	scheduler := queue.NewScheduler(redisOpt(cfg), cfg.Worker)

	if err := scheduler.RegisterPaymentJobs(); err != nil {
		log.Fatal().Err(err).Msg("failed to register scheduled jobs")
	}

	go func() {
		log.Info().Msg("scheduler starting")
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("scheduler failed")
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

func (s *asynqScheduler) Shutdown() {
	s.Scheduler.Shutdown()
	log.Info().Msg("scheduler stopped")
}
