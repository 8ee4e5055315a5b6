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

type AuthServiceInterface interface {
	Register(ctx context.Context, req *entity.RegisterRequest) (*entity.AuthResponse, error)
	Login(ctx context.Context, req *entity.LoginRequest) (*entity.AuthResponse, error)
}

type AuthHandler struct {
	authService AuthServiceInterface
	validator   *validator.Validate
}

func NewAuthHandler(authService AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator.New(),
	}
}

// Signup обрабатывает POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req entity.RegisterRequest
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

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			c.JSON(http.StatusConflict, entity.ErrorResponse{
				Success: false,
				Message: "User already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: "Error creating user",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, entity.SuccessResponse{
		Success: true,
		Message: "User registered successfully",
		Data:    resp,
	})
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req entity.LoginRequest
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

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, entity.ErrorResponse{
				Success: false,
				Message: "Invalid email or password",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: "Error logging in",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Success: true,
		Data:    resp,
	})
}
