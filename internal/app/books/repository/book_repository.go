package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bookreviews/internal/app/books/entity"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const serviceName = "books-service"

type bookRepository struct {
	collection *mongo.Collection
}

// NewBookRepository создает новый репозиторий книг
// Автоматически создает текстовый индекс по title+author для поиска
func NewBookRepository(db *mongo.Database) BookRepository {
	collection := db.Collection("books")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	textIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "title", Value: "text"},
			{Key: "author", Value: "text"},
		},
		Options: options.Index().SetName("title_author_text_idx"),
	}

	if _, err := collection.Indexes().CreateOne(ctx, textIndex); err != nil {
		// Индекс может уже существовать, работу не прерываем
		logger.Warn().Err(err).Msg("failed to create text index on books")
	}

	// Индекс по created_at для сортировки списков
	createdIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("created_at_idx"),
	}

	if _, err := collection.Indexes().CreateOne(ctx, createdIndex); err != nil {
		logger.Warn().Err(err).Msg("failed to create created_at index on books")
	}

	return &bookRepository{collection: collection}
}

// Create сохраняет новую книгу; производные поля рейтинга начинаются с 0
func (r *bookRepository) Create(ctx context.Context, book *entity.Book) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "books")
	defer timer.ObserveDuration()

	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	book.AverageRating = 0
	book.TotalReviews = 0

	result, err := r.collection.InsertOne(ctx, book)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to create book: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		book.ID = oid
	}

	return nil
}

// GetByID получает книгу по ID
func (r *bookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// Невалидный hex не может указывать на существующую книгу
		return nil, ErrBookNotFound
	}

	var book entity.Book
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return &book, nil
}

// List возвращает страницу книг под фильтром и общее количество совпадений
// Сортировка: новые книги первыми, при равном created_at порядок стабильный по _id
func (r *bookRepository) List(ctx context.Context, filter entity.BookFilter, page, limit int) ([]entity.Book, int64, error) {
	query := bson.M{}
	if filter.Author != "" {
		query["author"] = containsInsensitive(filter.Author)
	}
	if filter.Genre != "" {
		query["genre"] = containsInsensitive(filter.Genre)
	}

	return r.findPage(ctx, query, page, limit)
}

// Search ищет книги по подстроке в title или author
func (r *bookRepository) Search(ctx context.Context, query string, page, limit int) ([]entity.Book, int64, error) {
	q := bson.M{
		"$or": bson.A{
			bson.M{"title": containsInsensitive(query)},
			bson.M{"author": containsInsensitive(query)},
		},
	}

	return r.findPage(ctx, q, page, limit)
}

// UpdateRating перезаписывает производные поля рейтинга одной книги
func (r *bookRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, average float64, total int64) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, "books")
	defer timer.ObserveDuration()

	update := bson.M{
		"$set": bson.M{
			"average_rating": average,
			"total_reviews":  total,
			"updated_at":     time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update book rating: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrBookNotFound
	}

	return nil
}

// AllIDs возвращает идентификаторы всех книг (для фоновой сверки агрегатов)
func (r *bookRepository) AllIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list book ids: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode book ids: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	return ids, nil
}

// findPage выполняет общий для списка и поиска запрос страницы
func (r *bookRepository) findPage(ctx context.Context, query bson.M, page, limit int) ([]entity.Book, int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpFind, "books")
	defer timer.ObserveDuration()

	skip := int64((page - 1) * limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpFind)
		return nil, 0, fmt.Errorf("failed to find books: %w", err)
	}
	defer cursor.Close(ctx)

	books := make([]entity.Book, 0)
	if err := cursor.All(ctx, &books); err != nil {
		return nil, 0, fmt.Errorf("failed to decode books: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpCount)
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	return books, total, nil
}

// containsInsensitive строит регистронезависимый предикат "содержит подстроку"
// Значение экранируется, чтобы матчиться буквально, а не как регулярное выражение
func containsInsensitive(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}
