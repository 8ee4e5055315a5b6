package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// parsePagination читает параметры page/limit из query
// page: 1-индексированный, нечисловой или <=0 приводится к 1
// limit: по умолчанию 10, верхней границы нет
// Отрицательный limit тоже приводится к 10, а не пропускается дальше:
// он ушел бы в Mongo limit и в знаменатель pages
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if err != nil || page <= 0 {
		page = defaultPage
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}

	return page, limit
}
