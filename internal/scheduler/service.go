package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/collector"
	"github.com/socialstudio/ugc-collector/internal/config"
	"github.com/socialstudio/ugc-collector/internal/models"
)

// Service runs the configured hashtag collection on a cron schedule
type Service struct {
	config    *config.Config
	collector *collector.Service
	cron      *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, collectorService *collector.Service) (*Service, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.TimeZone, err)
	}

	return &Service{
		config:    cfg,
		collector: collectorService,
		cron:      cron.New(cron.WithLocation(location)),
	}, nil
}

// Start begins the scheduled collections. With no schedule configured it is
// a no-op and collections run only via the HTTP trigger.
func (s *Service) Start() error {
	if s.config.CollectSchedule == "" {
		logrus.Info("No collection schedule configured, running on demand only")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.CollectSchedule, func() {
		logrus.Info("Starting scheduled collection run")

		req := models.ScrapeRequest{
			Mode:         models.ModeHashtags,
			Targets:      s.config.Hashtags,
			ResultsLimit: s.config.ResultsLimit,
		}
		if len(s.config.Hashtags) == 1 {
			req.Mode = models.ModeHashtag
		}

		run := s.collector.Run(context.Background(), req)
		if !run.Success {
			logrus.Errorf("Scheduled collection run %s failed: %v", run.ID, run.Errors)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q for %v", s.config.CollectSchedule, s.config.Hashtags)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
