package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"geoalert/internal/providers"
	"geoalert/internal/services"
	"geoalert/internal/storage"
	"geoalert/internal/structures"
)

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
	Poll()
}

// Scheduler drives the periodic schedule poll and snapshot persistence.
type Scheduler struct {
	config    *structures.Config
	logger    providers.Logger
	service   services.AlertServiceInterface
	persister storage.PersisterInterface
	metrics   providers.MetricsProviderInterface
	cron      *gron.Cron
	opsMu     sync.Mutex
	now       func() time.Time
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Engine.PollInterval), s.Poll)

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		if err := s.Persist(); err == nil {
			s.logger.Debugf(providers.TypeApp, "Persisted state")
		}
	})

	s.cron.Start()
	s.logger.Infof(providers.TypeApp, "Scheduler started: poll every %s, persist every %s",
		s.config.Engine.PollInterval, s.config.Persistence.SaveInterval)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Poll runs one scheduled-alert pass at the current time.
func (s *Scheduler) Poll() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Engine.PollInterval)
	defer cancel()

	res, err := s.service.PollSchedules(ctx, s.now())
	if err != nil {
		s.logger.Errorf(providers.TypeEngine, "Schedule poll failed: %s", err)
		return
	}
	if len(res.Alerts) > 0 || len(res.Issues) > 0 {
		s.logger.Infof(providers.TypeEngine, "Schedule poll: %d rules, %d alerts, %d issues",
			res.Evaluated, len(res.Alerts), len(res.Issues))
	}
}

func (s *Scheduler) Restore() error {
	return s.persister.Restore()
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	err := s.persister.Persist()
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.AlertServiceInterface, persister storage.PersisterInterface, metrics providers.MetricsProviderInterface) SchedulerInterface {
	return &Scheduler{
		config:    config,
		logger:    logger,
		service:   service,
		persister: persister,
		metrics:   metrics,
		now:       time.Now,
	}
}
