// Package scheduler запускает периодические задачи: выплаты, мониторинг, опрос счетов, обновление статистики.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job: периодическая задача.
type Job struct {
	Name string
	// Next возвращает момент следующего запуска после now.
	Next func(now time.Time) time.Time
	Run  func(ctx context.Context) error
	// AtStart: выполнить один раз сразу при старте.
	AtStart bool
}

// Every запускает задачу с постоянным интервалом.
func Every(d time.Duration) func(time.Time) time.Time {
	return func(now time.Time) time.Time { return now.Add(d) }
}

// Daily запускает задачу раз в сутки в hour:00 по поясу loc.
func Daily(hour int, loc *time.Location) func(time.Time) time.Time {
	return func(now time.Time) time.Time { return NextDaily(now, hour, loc) }
}

// NextDaily: ближайшее hour:00 в поясе loc строго после now.
func NextDaily(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	year, month, day := local.Date()
	next := time.Date(year, month, day, hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(year, month, day+1, hour, 0, 0, 0, loc)
	}
	return next
}

// Wait ждёт d или отмены ctx.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Scheduler struct {
	jobs []Job
	log  *zap.Logger
	now  func() time.Time
}

func New(log *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, log: log, now: time.Now}
}

// Run запускает все задачи и блокируется до отмены ctx и завершения текущих запусков.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	log := s.log.With(zap.String("job", job.Name))
	if job.AtStart {
		s.runOnce(ctx, job, log)
	}
	for {
		now := s.now()
		next := job.Next(now)
		log.Debug("следующий запуск", zap.Time("at", next))
		if err := Wait(ctx, next.Sub(now)); err != nil {
			log.Info("задача остановлена")
			return
		}
		s.runOnce(ctx, job, log)
	}
}

// runOnce выполняет задачу. Паника и ошибка не останавливают цикл.
func (s *Scheduler) runOnce(ctx context.Context, job Job, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("паника в задаче", zap.Any("panic", r))
		}
	}()
	start := s.now()
	if err := job.Run(ctx); err != nil {
		log.Error("ошибка задачи", zap.Error(err))
		return
	}
	log.Debug("задача выполнена", zap.Duration("took", s.now().Sub(start)))
}
