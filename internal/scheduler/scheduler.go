package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rssfeed/internal/domain"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	warmUpTimeoutFraction = 2
)

type Refresher interface {
	Refresh(ctx context.Context, cfg domain.AggregationConfig) ([]domain.FeedItem, error)
}

// Scheduler keeps the cache warm by rewriting it once per refresh interval, so
// the entry is replaced before it expires.
type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	service Refresher
	cfg     domain.AggregationConfig
	log     *slog.Logger
}

func New(
	ctx context.Context,
	service Refresher,
	cfg domain.AggregationConfig,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		service: service,
		cfg:     cfg,
		log:     log,
	}
}

func Spec(cfg domain.AggregationConfig) string {
	return fmt.Sprintf("@every %ds", cfg.RefreshIntervalSeconds)
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(Spec(s.cfg), s.warmUp); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) warmUp() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RefreshInterval()/warmUpTimeoutFraction)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	items, err := s.service.Refresh(ctx, s.cfg)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to warm up cache",
			"error", err,
			"sourceCount", len(s.cfg.Sources))
		return
	}

	s.log.InfoContext(ctx, "Cache is warmed up",
		"sourceCount", len(s.cfg.Sources),
		"itemCount", len(items))
}
