package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ScheduleCompleter closes schedules whose day has passed
type ScheduleCompleter interface {
	CompletePastSchedules(ctx context.Context) (int64, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	completer ScheduleCompleter
	spec      string
	logger    logrus.FieldLogger
}

// NewCronService creates a new CronService. spec uses the six-field format
// with seconds, e.g. "0 5 0 * * *" for 00:05 every day.
func NewCronService(completer ScheduleCompleter, spec string, logger logrus.FieldLogger) *CronService {
	return &CronService{
		cron:      cron.New(cron.WithSeconds()),
		completer: completer,
		spec:      spec,
		logger:    logger,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.completeSchedulesJob); err != nil {
		return fmt.Errorf("failed to schedule completion job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("spec", s.spec).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) completeSchedulesJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	s.runCompletion(ctx)
}

func (s *CronService) runCompletion(ctx context.Context) {
	start := time.Now()
	n, err := s.completer.CompletePastSchedules(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to complete past schedules")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"completed": n,
		"duration":  time.Since(start).String(),
	}).Info("[CRON] Past schedules completed")
}
