package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bookreviews/internal/app/books/entity"
	"bookreviews/internal/app/books/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type CatalogServiceInterface interface {
	CreateBook(ctx context.Context, req *entity.CreateBookRequest) (*entity.Book, error)
	ListBooks(ctx context.Context, filter entity.BookFilter, page, limit int) (*entity.BookListData, error)
	SearchBooks(ctx context.Context, query string, page, limit int) (*entity.BookListData, error)
	GetBookDetail(ctx context.Context, bookID string, page, limit int) (*entity.BookDetailData, error)
}

type BookHandler struct {
	catalogService CatalogServiceInterface
	validator      *validator.Validate
}

func NewBookHandler(catalogService CatalogServiceInterface) *BookHandler {
	return &BookHandler{
		catalogService: catalogService,
		validator:      validator.New(),
	}
}

// CreateBook обрабатывает POST /books
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req entity.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	// Пробелы по краям обрезаются до проверки required:
	// строка из одних пробелов - это пустое обязательное поле
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.Genre = strings.TrimSpace(req.Genre)
	req.Description = strings.TrimSpace(req.Description)

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Success: false,
			Message: formatValidationError(err),
		})
		return
	}

	book, err := h.catalogService.CreateBook(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: "Error creating book",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, entity.SuccessResponse{
		Success: true,
		Message: "Book created successfully",
		Data:    book,
	})
}

// GetBooks обрабатывает GET /books с пагинацией и фильтрами author/genre
func (h *BookHandler) GetBooks(c *gin.Context) {
	page, limit := parsePagination(c)
	filter := entity.BookFilter{
		Author: c.Query("author"),
		Genre:  c.Query("genre"),
	}

	data, err := h.catalogService.ListBooks(c.Request.Context(), filter, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: "Error fetching books",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// GetBookByID обрабатывает GET /books/:id - книга плюс страница её отзывов
func (h *BookHandler) GetBookByID(c *gin.Context) {
	page, limit := parsePagination(c)

	data, err := h.catalogService.GetBookDetail(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{
				Success: false,
				Message: "Book not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: "Error fetching book",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Success: true,
		Data:    data,
	})
}

func formatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
