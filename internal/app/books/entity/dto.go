package entity

// CreateBookRequest - запрос на создание книги
// Все поля обязательные, пробелы по краям обрезаются до валидации
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Genre       string `json:"genre" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// CreateReviewRequest - запрос на создание отзыва
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

// UpdateReviewRequest - запрос на обновление отзыва
// Правила те же что и при создании
type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

// RegisterRequest - запрос на регистрацию пользователя
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest - запрос на вход
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserInfo - публичные поля пользователя в ответах аутентификации
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse - ответ на регистрацию и вход
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// SuccessResponse - стандартный конверт успешного ответа
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse - стандартный конверт ошибки
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// BookListData - страница книг для списка и поиска
type BookListData struct {
	Books      []Book     `json:"books"`
	Pagination Pagination `json:"pagination"`
}

// ReviewPage - страница отзывов книги
type ReviewPage struct {
	Data       []ReviewWithAuthor `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// BookDetailData - книга вместе со страницей её отзывов
type BookDetailData struct {
	Book    Book       `json:"book"`
	Reviews ReviewPage `json:"reviews"`
}

// BookFilter - фильтры списка книг
// Непустые значения матчатся как регистронезависимая подстрока
type BookFilter struct {
	Author string
	Genre  string
}
