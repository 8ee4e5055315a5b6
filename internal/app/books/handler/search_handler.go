package handler

import (
	"net/http"

	"bookreviews/internal/app/books/entity"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	catalogService CatalogServiceInterface
}

func NewSearchHandler(catalogService CatalogServiceInterface) *SearchHandler {
	return &SearchHandler{catalogService: catalogService}
}

// SearchBooks обрабатывает GET /search?q=...
// Пустой q - ошибка клиента, а не пустой результат
func (h *SearchHandler) SearchBooks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Success: false,
			Message: "Search query is required",
		})
		return
	}

	page, limit := parsePagination(c)

	data, err := h.catalogService.SearchBooks(c.Request.Context(), query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Success: false,
			Message: "Error searching books",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Success: true,
		Data:    data,
	})
}
