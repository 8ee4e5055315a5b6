package service

import (
	"io"
	"os"
	"testing"

	"bookreviews/pkg/logger"
)

func TestMain(m *testing.M) {
	// Сервисы логируют некритичные сбои (кеш, Kafka, пересчет) - глушим вывод
	logger.InitWithWriter("books-service-test", "error", io.Discard)
	os.Exit(m.Run())
}
