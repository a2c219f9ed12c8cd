package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// IndexPruner убирает прошедшие даты из индекса конфликтов
type IndexPruner interface {
	PruneIndex() int
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	pruner   IndexPruner
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(pruner IndexPruner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("prune_interval", s.interval))

	go s.runPruneTask(ctx)
}

// Stop останавливает задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	<-s.done
}

// runPruneTask периодически выбрасывает из индекса вчерашние и более ранние даты.
// Первый запуск при старте не нужен: LoadIndex грузит только будущие брони
func (s *Scheduler) runPruneTask(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pruner.PruneIndex()
		case <-s.stopChan:
			s.logger.Info("Index prune task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Index prune task cancelled")
			return
		}
	}
}
