package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookreviews/internal/app/books/entity"
	"bookreviews/internal/app/books/repository"
	"bookreviews/internal/app/books/util"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/metrics"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrBookNotFound = errors.New("book not found")
)

const bookCacheTTL = 10 * time.Minute

// CatalogService обрабатывает бизнес-логику каталога книг:
// создание, списки с фильтрами, поиск и карточку книги со страницей отзывов
type CatalogService struct {
	bookRepo   repository.BookRepository
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
	cache      util.BookCache
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	bookRepo repository.BookRepository,
	reviewRepo repository.ReviewRepository,
	userRepo repository.UserRepository,
	cache util.BookCache,
) *CatalogService {
	return &CatalogService{
		bookRepo:   bookRepo,
		reviewRepo: reviewRepo,
		userRepo:   userRepo,
		cache:      cache,
	}
}

// CreateBook создает новую книгу с нулевыми агрегатами рейтинга
func (s *CatalogService) CreateBook(ctx context.Context, req *entity.CreateBookRequest) (*entity.Book, error) {
	book := &entity.Book{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Description: req.Description,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	metrics.BooksCreated.Inc()

	return book, nil
}

// ListBooks возвращает страницу книг под фильтрами author/genre
// Фильтры матчатся как регистронезависимая подстрока
func (s *CatalogService) ListBooks(ctx context.Context, filter entity.BookFilter, page, limit int) (*entity.BookListData, error) {
	books, total, err := s.bookRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return &entity.BookListData{
		Books:      books,
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

// SearchBooks ищет книги по подстроке в title или author
func (s *CatalogService) SearchBooks(ctx context.Context, query string, page, limit int) (*entity.BookListData, error) {
	books, total, err := s.bookRepo.Search(ctx, query, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	metrics.SearchQueries.Inc()

	return &entity.BookListData{
		Books:      books,
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

// GetBookDetail возвращает книгу со страницей её отзывов
// Существование книги проверяется до запроса отзывов;
// авторы отзывов резолвятся только в отображаемое имя
func (s *CatalogService) GetBookDetail(ctx context.Context, bookID string, page, limit int) (*entity.BookDetailData, error) {
	book, err := s.getBookCached(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	reviews, total, err := s.reviewRepo.GetByBook(ctx, book.ID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	withAuthors, err := s.resolveAuthors(ctx, reviews)
	if err != nil {
		return nil, err
	}

	return &entity.BookDetailData{
		Book: *book,
		Reviews: entity.ReviewPage{
			Data:       withAuthors,
			Pagination: entity.NewPagination(page, limit, total),
		},
	}, nil
}

// getBookCached читает книгу cache-aside: сначала Redis, затем MongoDB
func (s *CatalogService) getBookCached(ctx context.Context, bookID string) (*entity.Book, error) {
	cached, err := s.cache.GetBook(ctx, bookID)
	if err != nil {
		// Проблемы с кешем не критичны, идем в БД
		logger.Warn().Err(err).Str("book_id", bookID).Msg("book cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetBook(ctx, book, bookCacheTTL); err != nil {
		logger.Warn().Err(err).Str("book_id", bookID).Msg("book cache write failed")
	}

	return book, nil
}

// resolveAuthors подставляет имена авторов отзывов одним запросом к users
func (s *CatalogService) resolveAuthors(ctx context.Context, reviews []entity.Review) ([]entity.ReviewWithAuthor, error) {
	ids := make([]string, 0, len(reviews))
	seen := make(map[string]bool, len(reviews))
	for _, rv := range reviews {
		if !seen[rv.UserID] {
			seen[rv.UserID] = true
			ids = append(ids, rv.UserID)
		}
	}

	names, err := s.userRepo.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve review authors: %w", err)
	}

	withAuthors := make([]entity.ReviewWithAuthor, 0, len(reviews))
	for _, rv := range reviews {
		withAuthors = append(withAuthors, entity.ReviewWithAuthor{
			Review:   rv,
			UserName: names[rv.UserID],
		})
	}

	return withAuthors, nil
}
