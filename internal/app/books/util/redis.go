package util

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookreviews/internal/app/books/entity"
	"bookreviews/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	serviceName     = "books-service"
	bookKeyPrefix   = "book"
	bookKeyTemplate = "book:%s"
)

// RedisClient кеширует отдельные книги по ID
// Запись инвалидируется при каждом пересчете рейтинга книги
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFrom оборачивает уже созданный клиент (для тестов с miniredis)
func NewRedisClientFrom(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) SetBook(ctx context.Context, book *entity.Book, ttl time.Duration) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}

	key := fmt.Sprintf(bookKeyTemplate, book.ID.Hex())
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.RecordRedisError(serviceName, "set")
		return fmt.Errorf("failed to set book in cache: %w", err)
	}

	return nil
}

// GetBook возвращает (nil, nil) при промахе кеша
func (r *RedisClient) GetBook(ctx context.Context, id string) (*entity.Book, error) {
	key := fmt.Sprintf(bookKeyTemplate, id)

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheMiss(serviceName, bookKeyPrefix)
			return nil, nil
		}
		metrics.RecordRedisError(serviceName, "get")
		return nil, fmt.Errorf("failed to get book from cache: %w", err)
	}

	var book entity.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to unmarshal book: %w", err)
	}

	metrics.RecordCacheHit(serviceName, bookKeyPrefix)
	return &book, nil
}

func (r *RedisClient) DeleteBook(ctx context.Context, id string) error {
	key := fmt.Sprintf(bookKeyTemplate, id)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		metrics.RecordRedisError(serviceName, "del")
		return fmt.Errorf("failed to delete book from cache: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
