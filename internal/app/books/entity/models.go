package entity

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book представляет книгу в каталоге
// Поля AverageRating и TotalReviews производные: всегда равны среднему
// и количеству текущих отзывов книги, пересчитываются после каждой
// мутации отзыва
type Book struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title"`
	Author        string             `json:"author" bson:"author"`
	Genre         string             `json:"genre" bson:"genre"`
	Description   string             `json:"description" bson:"description"`
	AverageRating float64            `json:"average_rating" bson:"average_rating"` // Среднее от 0 до 5, 0 если отзывов нет
	TotalReviews  int64              `json:"total_reviews" bson:"total_reviews"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// Review представляет отзыв пользователя на книгу
// Не более одного отзыва на пару (книга, пользователь) - уникальный индекс
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BookID    primitive.ObjectID `json:"book_id" bson:"book_id"`
	UserID    string             `json:"user_id" bson:"user_id"` // UUID пользователя из таблицы users
	Rating    int                `json:"rating" bson:"rating"`   // Оценка от 1 до 5
	Comment   string             `json:"comment" bson:"comment"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// ReviewWithAuthor - отзыв с отображаемым именем автора
// Наружу отдается только имя, никаких других полей пользователя
type ReviewWithAuthor struct {
	Review
	UserName string `json:"user_name"`
}

// User представляет аккаунт пользователя в PostgreSQL
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReviewEvent представляет событие жизненного цикла отзыва для Kafka
type ReviewEvent struct {
	EventType string    `json:"event_type"` // REVIEW_CREATED, REVIEW_UPDATED, REVIEW_DELETED
	ReviewID  string    `json:"review_id"`
	BookID    string    `json:"book_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// Pagination - метаданные страницы выборки
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"` // Количество всех записей под фильтром, не только на странице
	Pages int   `json:"pages"` // ceil(total / limit)
}

// NewPagination собирает метаданные страницы; pages = ceil(total/limit)
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}
