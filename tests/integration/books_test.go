//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"bookreviews/internal/app/books/entity"
	"bookreviews/internal/app/books/handler"
	"bookreviews/internal/app/books/repository"
	"bookreviews/internal/app/books/service"
	"bookreviews/internal/app/books/util"
	"bookreviews/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MockKafkaProducer struct {
	mock.Mock
	Messages [][]byte
}

func (m *MockKafkaProducer) PublishMessage(ctx context.Context, key string, value []byte) error {
	m.Messages = append(m.Messages, value)
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKafkaProducer) Close() error { return nil }

// stubUserRepository отдает фиксированные имена, PostgreSQL не нужен
type stubUserRepository struct {
	names map[string]string
}

func (r *stubUserRepository) Create(ctx context.Context, user *entity.User) error { return nil }

func (r *stubUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return nil, repository.ErrUserNotFound
}

func (r *stubUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, repository.ErrUserNotFound
}

func (r *stubUserRepository) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if name, ok := r.names[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

type BooksIntegrationTestSuite struct {
	suite.Suite
	client        *mongo.Client
	db            *mongo.Database
	redisServer   *miniredis.Miniredis
	router        *gin.Engine
	kafkaProducer *MockKafkaProducer
	currentUserID string
	firstUserID   string
	secondUserID  string
}

func TestBooksIntegrationSuite(t *testing.T) {
	suite.Run(t, new(BooksIntegrationTestSuite))
}

func (s *BooksIntegrationTestSuite) SetupSuite() {
	logger.InitWithWriter("books-service-test", "error", io.Discard)

	mongoURI := getEnv("TEST_MONGODB_URI", "mongodb://localhost:27017")
	dbName := getEnv("TEST_MONGODB_DATABASE", "book_reviews_test")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	s.client, err = mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	s.Require().NoError(err)
	s.Require().NoError(s.client.Ping(ctx, nil))

	s.db = s.client.Database(dbName)

	s.redisServer, err = miniredis.Run()
	s.Require().NoError(err)
	cache := util.NewRedisClientFrom(redis.NewClient(&redis.Options{Addr: s.redisServer.Addr()}))

	s.firstUserID = uuid.NewString()
	s.secondUserID = uuid.NewString()

	bookRepo := repository.NewBookRepository(s.db)
	reviewRepo := repository.NewReviewRepository(s.db)
	userRepo := &stubUserRepository{names: map[string]string{
		s.firstUserID:  "Alice",
		s.secondUserID: "Bob",
	}}

	s.kafkaProducer = &MockKafkaProducer{Messages: make([][]byte, 0)}

	catalogService := service.NewCatalogService(bookRepo, reviewRepo, userRepo, cache)
	reviewService := service.NewReviewService(reviewRepo, bookRepo, cache, s.kafkaProducer)

	bookHandler := handler.NewBookHandler(catalogService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	searchHandler := handler.NewSearchHandler(catalogService)

	authMiddleware := func(c *gin.Context) {
		c.Set("user_id", s.currentUserID)
		c.Next()
	}

	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.router.POST("/books", authMiddleware, bookHandler.CreateBook)
	s.router.GET("/books", bookHandler.GetBooks)
	s.router.GET("/books/:id", bookHandler.GetBookByID)
	s.router.POST("/books/:id/reviews", authMiddleware, reviewHandler.CreateReview)
	s.router.PUT("/reviews/:id", authMiddleware, reviewHandler.UpdateReview)
	s.router.DELETE("/reviews/:id", authMiddleware, reviewHandler.DeleteReview)
	s.router.GET("/search", searchHandler.SearchBooks)
}

func (s *BooksIntegrationTestSuite) SetupTest() {
	ctx := context.Background()
	s.db.Collection("books").Drop(ctx)
	s.db.Collection("reviews").Drop(ctx)
	s.redisServer.FlushAll()
	s.currentUserID = s.firstUserID
	s.kafkaProducer.Messages = make([][]byte, 0)
	s.kafkaProducer.ExpectedCalls = nil
	s.kafkaProducer.Calls = nil
	s.kafkaProducer.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	// Уникальный индекс (book_id, user_id) пересоздается конструктором,
	// после Drop коллекции его нужно вернуть
	repository.NewReviewRepository(s.db)
}

func (s *BooksIntegrationTestSuite) TearDownSuite() {
	if s.redisServer != nil {
		s.redisServer.Close()
	}
	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(ctx)
	}
}

func (s *BooksIntegrationTestSuite) createBook(title, author, genre string) entity.Book {
	body, _ := json.Marshal(entity.CreateBookRequest{
		Title:       title,
		Author:      author,
		Genre:       genre,
		Description: "Integration test book.",
	})
	req, _ := http.NewRequest(http.MethodPost, "/books", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp struct {
		Success bool        `json:"success"`
		Data    entity.Book `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func (s *BooksIntegrationTestSuite) createReview(bookID string, rating int) entity.Review {
	body, _ := json.Marshal(entity.CreateReviewRequest{Rating: rating, Comment: "Integration test review."})
	req, _ := http.NewRequest(http.MethodPost, "/books/"+bookID+"/reviews", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    entity.Review `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func (s *BooksIntegrationTestSuite) getBook(bookID string) entity.BookDetailData {
	req, _ := http.NewRequest(http.MethodGet, "/books/"+bookID, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Success bool                  `json:"success"`
		Data    entity.BookDetailData `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func (s *BooksIntegrationTestSuite) listBooks(query string) entity.BookListData {
	req, _ := http.NewRequest(http.MethodGet, "/books"+query, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    entity.BookListData `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func (s *BooksIntegrationTestSuite) TestCreateAndFetchBook() {
	book := s.createBook("Dune", "Frank Herbert", "Science Fiction")

	s.Equal("Dune", book.Title)
	s.Equal(0.0, book.AverageRating)
	s.Equal(int64(0), book.TotalReviews)

	detail := s.getBook(book.ID.Hex())
	s.Equal("Dune", detail.Book.Title)
	s.Empty(detail.Reviews.Data)
}

func (s *BooksIntegrationTestSuite) TestListBooks_FilterByAuthor() {
	s.createBook("Dune", "Frank Herbert", "Science Fiction")
	s.createBook("Foundation", "Isaac Asimov", "Science Fiction")

	// Фильтр по подстроке автора без учета регистра
	data := s.listBooks("?author=herb")

	s.Len(data.Books, 1)
	s.Equal("Dune", data.Books[0].Title)
	s.Equal(int64(1), data.Pagination.Total)
}

func (s *BooksIntegrationTestSuite) TestListBooks_PageBeyondRange() {
	s.createBook("Dune", "Frank Herbert", "SF")
	s.createBook("Foundation", "Isaac Asimov", "SF")
	s.createBook("Hyperion", "Dan Simmons", "SF")

	data := s.listBooks("?page=5&limit=10")

	s.Empty(data.Books)
	s.Equal(5, data.Pagination.Page)
	s.Equal(int64(3), data.Pagination.Total)
	s.Equal(1, data.Pagination.Pages)
}

func (s *BooksIntegrationTestSuite) TestListBooks_PaginationWalk() {
	const total = 23
	for i := 0; i < total; i++ {
		s.createBook(fmt.Sprintf("Book %02d", i), "Walk Author", "SF")
	}

	// Проходим все страницы подряд и собираем ID в порядке выдачи
	walk := func() []string {
		ids := make([]string, 0, total)
		page := 1
		for {
			data := s.listBooks(fmt.Sprintf("?page=%d&limit=10", page))
			s.Require().Equal(int64(total), data.Pagination.Total)
			s.Require().Equal(3, data.Pagination.Pages)
			for _, b := range data.Books {
				ids = append(ids, b.ID.Hex())
			}
			if page >= data.Pagination.Pages {
				return ids
			}
			page++
		}
	}

	first := walk()

	// Конкатенация страниц покрывает всю коллекцию без дублей и пропусков
	s.Require().Len(first, total)
	unique := make(map[string]bool, total)
	for _, id := range first {
		unique[id] = true
	}
	s.Len(unique, total)

	// Повторный проход дает тот же порядок: сортировка стабильна
	// за счет тай-брейка по _id при равных created_at
	second := walk()
	s.Equal(first, second)

	// Постраничный порядок совпадает с выдачей одной большой страницей
	all := s.listBooks(fmt.Sprintf("?limit=%d", total))
	s.Require().Len(all.Books, total)
	allIDs := make([]string, 0, total)
	for _, b := range all.Books {
		allIDs = append(allIDs, b.ID.Hex())
	}
	s.Equal(allIDs, first)
}

func (s *BooksIntegrationTestSuite) TestSearchBooks() {
	s.createBook("Dune", "Frank Herbert", "Science Fiction")
	s.createBook("Foundation", "Isaac Asimov", "Science Fiction")

	req, _ := http.NewRequest(http.MethodGet, "/search?q=asimov", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    entity.BookListData `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Data.Books, 1)
	s.Equal("Foundation", resp.Data.Books[0].Title)
}

func (s *BooksIntegrationTestSuite) TestSearch_MissingQuery() {
	req, _ := http.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *BooksIntegrationTestSuite) TestRatingAggregationLifecycle() {
	book := s.createBook("Dune", "Frank Herbert", "Science Fiction")
	bookID := book.ID.Hex()

	// Первый отзыв с оценкой 4
	firstReview := s.createReview(bookID, 4)
	detail := s.getBook(bookID)
	s.Equal(4.0, detail.Book.AverageRating)
	s.Equal(int64(1), detail.Book.TotalReviews)

	// Второй пользователь ставит 2, среднее становится 3
	s.currentUserID = s.secondUserID
	s.createReview(bookID, 2)
	detail = s.getBook(bookID)
	s.Equal(3.0, detail.Book.AverageRating)
	s.Equal(int64(2), detail.Book.TotalReviews)

	// Удаление отзыва с оценкой 4 оставляет среднее 2
	s.currentUserID = s.firstUserID
	req, _ := http.NewRequest(http.MethodDelete, "/reviews/"+firstReview.ID.Hex(), nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)

	detail = s.getBook(bookID)
	s.Equal(2.0, detail.Book.AverageRating)
	s.Equal(int64(1), detail.Book.TotalReviews)
}

func (s *BooksIntegrationTestSuite) TestDuplicateReviewRejected() {
	book := s.createBook("Dune", "Frank Herbert", "Science Fiction")
	bookID := book.ID.Hex()

	s.createReview(bookID, 4)

	body, _ := json.Marshal(entity.CreateReviewRequest{Rating: 5, Comment: "Trying again."})
	req, _ := http.NewRequest(http.MethodPost, "/books/"+bookID+"/reviews", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusConflict, w.Code)

	// Повторная попытка не изменила агрегаты
	detail := s.getBook(bookID)
	s.Equal(4.0, detail.Book.AverageRating)
	s.Equal(int64(1), detail.Book.TotalReviews)
}

func (s *BooksIntegrationTestSuite) TestUpdateReviewRecomputesRating() {
	book := s.createBook("Dune", "Frank Herbert", "Science Fiction")
	bookID := book.ID.Hex()

	review := s.createReview(bookID, 2)

	body, _ := json.Marshal(entity.UpdateReviewRequest{Rating: 5, Comment: "Changed my mind."})
	req, _ := http.NewRequest(http.MethodPut, "/reviews/"+review.ID.Hex(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)

	detail := s.getBook(bookID)
	s.Equal(5.0, detail.Book.AverageRating)
	s.Equal(int64(1), detail.Book.TotalReviews)
}

func (s *BooksIntegrationTestSuite) TestReviewOwnershipEnforced() {
	book := s.createBook("Dune", "Frank Herbert", "Science Fiction")
	review := s.createReview(book.ID.Hex(), 4)

	// Чужой отзыв нельзя ни изменить, ни удалить
	s.currentUserID = s.secondUserID

	body, _ := json.Marshal(entity.UpdateReviewRequest{Rating: 1, Comment: "Not mine."})
	req, _ := http.NewRequest(http.MethodPut, "/reviews/"+review.ID.Hex(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusForbidden, w.Code)

	req, _ = http.NewRequest(http.MethodDelete, "/reviews/"+review.ID.Hex(), nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *BooksIntegrationTestSuite) TestReviewAuthorNamesResolved() {
	book := s.createBook("Dune", "Frank Herbert", "Science Fiction")
	s.createReview(book.ID.Hex(), 4)

	detail := s.getBook(book.ID.Hex())

	s.Require().Len(detail.Reviews.Data, 1)
	s.Equal("Alice", detail.Reviews.Data[0].UserName)
}

func (s *BooksIntegrationTestSuite) TestReviewEventsPublished() {
	book := s.createBook("Dune", "Frank Herbert", "Science Fiction")
	review := s.createReview(book.ID.Hex(), 4)

	req, _ := http.NewRequest(http.MethodDelete, "/reviews/"+review.ID.Hex(), nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)

	s.Require().Len(s.kafkaProducer.Messages, 2)

	var created, deleted entity.ReviewEvent
	s.NoError(json.Unmarshal(s.kafkaProducer.Messages[0], &created))
	s.NoError(json.Unmarshal(s.kafkaProducer.Messages[1], &deleted))
	s.Equal("REVIEW_CREATED", created.EventType)
	s.Equal("REVIEW_DELETED", deleted.EventType)
}

func (s *BooksIntegrationTestSuite) TestGetBook_NotFound() {
	req, _ := http.NewRequest(http.MethodGet, "/books/000000000000000000000000", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusNotFound, w.Code)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
