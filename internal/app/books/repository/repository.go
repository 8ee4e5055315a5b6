package repository

import (
	"context"
	"errors"

	"bookreviews/internal/app/books/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// Стандартные ошибки репозиториев для обработки в service layer
	ErrBookNotFound    = errors.New("book not found")
	ErrReviewNotFound  = errors.New("review not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateReview = errors.New("duplicate review for book and user")
)

// BookRepository определяет методы для работы с книгами в MongoDB
type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error
	GetByID(ctx context.Context, id string) (*entity.Book, error)
	List(ctx context.Context, filter entity.BookFilter, page, limit int) ([]entity.Book, int64, error)
	Search(ctx context.Context, query string, page, limit int) ([]entity.Book, int64, error)
	UpdateRating(ctx context.Context, id primitive.ObjectID, average float64, total int64) error
	AllIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// ReviewRepository определяет методы для работы с отзывами в MongoDB
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id string) (*entity.Review, error)
	GetByBook(ctx context.Context, bookID primitive.ObjectID, page, limit int) ([]entity.Review, int64, error)
	Update(ctx context.Context, review *entity.Review) error
	Delete(ctx context.Context, id string) error
	AggregateRating(ctx context.Context, bookID primitive.ObjectID) (float64, int64, error)
}

// UserRepository определяет методы для работы с пользователями в PostgreSQL
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}
