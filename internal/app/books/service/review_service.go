package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"bookreviews/internal/app/books/entity"
	"bookreviews/internal/app/books/repository"
	"bookreviews/internal/app/books/util"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("review already exists for this book and user")
	ErrUnauthorized    = errors.New("unauthorized access to review")
)

const bookLockShards = 64

// bookLocks сериализует пересчет агрегатов по отдельной книге:
// конкурентные мутации отзывов одной книги не перетирают пересчеты друг друга
// Фиксированный набор шардов вместо карты по ID: множество книг растет
// без ограничения за время жизни процесса, а совпадение шарда у двух книг
// лишь изредка задерживает чужой пересчет
type bookLocks struct {
	shards [bookLockShards]sync.Mutex
}

func newBookLocks() *bookLocks {
	return &bookLocks{}
}

func (l *bookLocks) get(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &l.shards[h.Sum32()%bookLockShards]
}

// ReviewService обрабатывает бизнес-логику отзывов
// После каждой успешной мутации отзыва явно пересчитывает
// average_rating/total_reviews его книги и публикует событие в Kafka
type ReviewService struct {
	reviewRepo    repository.ReviewRepository
	bookRepo      repository.BookRepository
	cache         util.BookCache
	kafkaProducer util.MessagePublisher
	locks         *bookLocks
}

// NewReviewService создает новый сервис отзывов с внедрением зависимостей
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	bookRepo repository.BookRepository,
	cache util.BookCache,
	kafkaProducer util.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		reviewRepo:    reviewRepo,
		bookRepo:      bookRepo,
		cache:         cache,
		kafkaProducer: kafkaProducer,
		locks:         newBookLocks(),
	}
}

// CreateReview создает отзыв пользователя на книгу
// 1. Проверяет существование книги
// 2. Сохраняет отзыв (уникальность (book, user) гарантирует индекс)
// 3. Пересчитывает агрегаты книги по свежему набору отзывов
// 4. Отправляет событие REVIEW_CREATED в Kafka
func (s *ReviewService) CreateReview(ctx context.Context, bookID string, userID string, req *entity.CreateReviewRequest) (*entity.Review, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	review := &entity.Review{
		BookID:  book.ID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			// Существующий отзыв не тронут, пересчет не запускается
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	metrics.ReviewsCreated.Inc()
	metrics.ReviewsRating.Observe(float64(review.Rating))

	s.recomputeRating(ctx, book.ID, "create")
	s.publishReviewEvent(ctx, "REVIEW_CREATED", review)

	return review, nil
}

// UpdateReview обновляет отзыв с проверкой прав доступа
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID string, userID string, req *entity.UpdateReviewRequest) (*entity.Review, error) {
	review, err := s.getOwnedReview(ctx, reviewID, userID)
	if err != nil {
		return nil, err
	}

	review.Rating = req.Rating
	review.Comment = req.Comment

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	s.recomputeRating(ctx, review.BookID, "update")
	s.publishReviewEvent(ctx, "REVIEW_UPDATED", review)

	return review, nil
}

// DeleteReview удаляет отзыв с проверкой прав доступа
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID string, userID string) error {
	review, err := s.getOwnedReview(ctx, reviewID, userID)
	if err != nil {
		return err
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}

	s.recomputeRating(ctx, review.BookID, "delete")
	s.publishReviewEvent(ctx, "REVIEW_DELETED", review)

	return nil
}

// ReconcileAllBooks пересчитывает агрегаты всех книг
// Вызывается фоновым планировщиком как страховка от рассинхронизации
// после неудавшегося пересчета вслед за закоммиченной мутацией
func (s *ReviewService) ReconcileAllBooks(ctx context.Context) error {
	ids, err := s.bookRepo.AllIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books for reconcile: %w", err)
	}

	var failed int
	for _, id := range ids {
		if err := s.recomputeRatingStrict(ctx, id, "reconcile"); err != nil {
			failed++
			logger.Warn().Err(err).Str("book_id", id.Hex()).Msg("rating reconcile failed")
		}
	}

	if failed > 0 {
		return fmt.Errorf("reconcile finished with %d of %d books failed", failed, len(ids))
	}

	return nil
}

// getOwnedReview получает отзыв и проверяет, что userID является его автором
func (s *ReviewService) getOwnedReview(ctx context.Context, reviewID string, userID string) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	if review.UserID != userID {
		return nil, ErrUnauthorized
	}

	return review, nil
}

// recomputeRating пересчитывает агрегаты книги после закоммиченной мутации
// Мутация уже сохранена, поэтому ошибка пересчета не роняет запрос:
// логируем и полагаемся на фоновую сверку
func (s *ReviewService) recomputeRating(ctx context.Context, bookID primitive.ObjectID, trigger string) {
	if err := s.recomputeRatingStrict(ctx, bookID, trigger); err != nil {
		logger.Warn().
			Err(err).
			Str("book_id", bookID.Hex()).
			Str("trigger", trigger).
			Msg("rating recompute failed, book aggregates stale until reconcile")
	}
}

// recomputeRatingStrict выполняет сам пересчет:
// под per-book локом читает средний рейтинг и количество одним $group
// и перезаписывает производные поля книги; затем инвалидирует кеш книги
func (s *ReviewService) recomputeRatingStrict(ctx context.Context, bookID primitive.ObjectID, trigger string) error {
	lock := s.locks.get(bookID.Hex())
	lock.Lock()
	defer lock.Unlock()

	average, total, err := s.reviewRepo.AggregateRating(ctx, bookID)
	if err == nil {
		err = s.bookRepo.UpdateRating(ctx, bookID, average, total)
	}
	metrics.RecordRatingRecompute(trigger, err)
	if err != nil {
		return err
	}

	if err := s.cache.DeleteBook(ctx, bookID.Hex()); err != nil {
		logger.Warn().Err(err).Str("book_id", bookID.Hex()).Msg("book cache invalidation failed")
	}

	return nil
}

// publishReviewEvent отправляет событие об отзыве в Kafka
// Отзыв уже сохранен, проблемы с Kafka не критичны
func (s *ReviewService) publishReviewEvent(ctx context.Context, eventType string, review *entity.Review) {
	event := entity.ReviewEvent{
		EventType: eventType,
		ReviewID:  review.ID.Hex(),
		BookID:    review.BookID.Hex(),
		UserID:    review.UserID,
		Rating:    review.Rating,
		Timestamp: time.Now(),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal review event")
		return
	}

	if err := s.kafkaProducer.PublishMessage(ctx, event.ReviewID, eventData); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish review event")
	}
}
