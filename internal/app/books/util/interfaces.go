package util

import (
	"context"
	"time"

	"bookreviews/internal/app/books/entity"
)

// BookCache интерфейс для кеширования книг в Redis
// Используется для dependency injection и упрощения тестирования
type BookCache interface {
	SetBook(ctx context.Context, book *entity.Book, ttl time.Duration) error
	GetBook(ctx context.Context, id string) (*entity.Book, error)
	DeleteBook(ctx context.Context, id string) error
	Close() error
}

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
