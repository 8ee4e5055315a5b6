package handler

import (
	"context"
	"errors"
	"net/http"

	"bookreviews/internal/app/books/entity"
	"bookreviews/internal/app/books/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ReviewServiceInterface interface {
	CreateReview(ctx context.Context, bookID string, userID string, req *entity.CreateReviewRequest) (*entity.Review, error)
	UpdateReview(ctx context.Context, reviewID string, userID string, req *entity.UpdateReviewRequest) (*entity.Review, error)
	DeleteReview(ctx context.Context, reviewID string, userID string) error
}

type ReviewHandler struct {
	reviewService ReviewServiceInterface
	validator     *validator.Validate
}

func NewReviewHandler(reviewService ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		validator:     validator.New(),
	}
}

// CreateReview обрабатывает POST /books/:id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req entity.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Success: false,
			Message: formatValidationError(err),
		})
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{
				Success: false,
				Message: "Book not found",
			})
		case errors.Is(err, service.ErrDuplicateReview):
			c.JSON(http.StatusConflict, entity.ErrorResponse{
				Success: false,
				Message: "You have already reviewed this book",
			})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
				Success: false,
				Message: "Error creating review",
				Error:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, entity.SuccessResponse{
		Success: true,
		Message: "Review created successfully",
		Data:    review,
	})
}

// UpdateReview обрабатывает PUT /reviews/:id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req entity.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Success: false,
			Message: formatValidationError(err),
		})
		return
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.writeReviewError(c, err, "Error updating review")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Success: true,
		Message: "Review updated successfully",
		Data:    review,
	})
}

// DeleteReview обрабатывает DELETE /reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.writeReviewError(c, err, "Error deleting review")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Success: true,
		Message: "Review deleted successfully",
	})
}

func (h *ReviewHandler) writeReviewError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{
			Success: false,
			Message: "Review not found",
		})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, entity.ErrorResponse{
			Success: false,
			Message: "Access denied",
		})
	default:
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: fallback,
			Error:   err.Error(),
		})
	}
}

// currentUserID достает ID пользователя, положенный auth middleware
func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, entity.ErrorResponse{
			Success: false,
			Message: "Unauthorized",
		})
		return "", false
	}

	userIDStr, ok := userID.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: "Invalid user ID",
		})
		return "", false
	}

	return userIDStr, true
}
