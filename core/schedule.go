package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/metrics"
	"github.com/huangsam/apprank/internal/notify"
	"github.com/huangsam/apprank/internal/upstream"
	"github.com/huangsam/apprank/schema"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(keysAndValues []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			fields[k] = keysAndValues[i+1]
		}
	}
	return fields
}

// Scheduler triggers a pipeline run on a cron spec. A trigger that fires while a
// run is still in progress is skipped.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *Pipeline
	location *time.Location
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewScheduler registers pipeline on spec, evaluated in loc.
func NewScheduler(spec string, loc *time.Location, pipeline *Pipeline, log logrus.FieldLogger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		pipeline: pipeline,
		location: loc,
		now:      time.Now,
		log:      log,
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{log: log}),
		cron.WithChain(cron.Recover(cronLogger{log: log}), cron.SkipIfStillRunning(cronLogger{log: log})),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// tick runs the pipeline for the current calendar date in the scheduler location.
func (s *Scheduler) tick() {
	runDate := schema.Today(s.now(), s.location)
	if _, err := s.pipeline.Run(context.Background(), runDate); err != nil {
		s.log.WithError(err).WithField("run_date", schema.FormatDate(runDate)).Error("scheduled run failed")
	}
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.WithField("next", e.Next.Format(time.RFC3339)).Info("next scheduled run")
	}
}

// Stop stops scheduling and waits for a running pipeline to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ExecuteSchedule runs the pipeline on cfg.Schedule until ctx is cancelled and
// serves run metrics at /metrics on cfg.Listen.
func ExecuteSchedule(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, log logrus.FieldLogger) error {
	collector := metrics.NewCollector(true)
	notifier, closeNotifier, err := notify.New(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	fetcher := upstream.NewFetcher(cfg, upstream.WithLogger(log), upstream.WithPageHook(collector.ObservePage))
	pipeline := NewPipeline(cfg, fetcher, mgr.GetStore(), notifier,
		WithObserver(collector),
		WithPipelineLogger(log),
	)
	scheduler, err := NewScheduler(cfg.Schedule, cfg.Location, pipeline, log)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Method(http.MethodGet, "/metrics", collector.Handler())
	srv := &http.Server{Addr: cfg.Listen, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Listen).Info("metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	scheduler.Start()
	log.WithField("schedule", cfg.Schedule).Info("scheduler started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	log.Info("scheduler stopped")
	return err
}
