package processor

import (
	"context"

	"bookreviews/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Reconciler пересчитывает агрегаты рейтинга всех книг
type Reconciler interface {
	ReconcileAllBooks(ctx context.Context) error
}

// CronScheduler по расписанию сверяет производные поля книг с набором отзывов
// Подстраховка на случай, когда пересчет после закоммиченной мутации отзыва
// не прошел и книга осталась с устаревшими агрегатами
type CronScheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
}

func NewCronScheduler(reconciler Reconciler) *CronScheduler {
	return &CronScheduler{
		cron:       cron.New(),
		reconciler: reconciler,
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("Starting rating reconcile scheduler")

	_, err := s.cron.AddFunc(schedule, func() {
		logger.Info().Msg("Cron job triggered: reconciling book ratings")

		if err := s.reconciler.ReconcileAllBooks(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to reconcile book ratings")
		} else {
			logger.Info().Msg("Cron job completed: book ratings reconciled")
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("Stopping rating reconcile scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Rating reconcile scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
