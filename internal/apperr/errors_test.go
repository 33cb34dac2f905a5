package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
)

func TestNewValidation(t *testing.T) {
	err := apperr.NewValidation("field is required")

	if err.Error() != "field is required" {
		t.Errorf("expected 'field is required', got %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Errorf("expected nil unwrap, got %v", err.Unwrap())
	}
}

func TestNewValidationWrap(t *testing.T) {
	inner := fmt.Errorf("parse failed")
	err := apperr.NewValidationWrap("invalid request", inner)

	if err.Error() != "invalid request: parse failed" {
		t.Errorf("expected 'invalid request: parse failed', got %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to return inner error")
	}
}

func TestTransientError_SurvivesFmtWrapping(t *testing.T) {
	original := apperr.NewTransient(fmt.Errorf("connection reset"))

	wrapped := fmt.Errorf("fetch headlines: %w", original)
	doubleWrapped := fmt.Errorf("source newsapi: %w", wrapped)

	if !apperr.IsTransient(doubleWrapped) {
		t.Fatal("IsTransient should find TransientFetchError through double wrapping")
	}
}

func TestTransient_NotFoundForPlainErrors(t *testing.T) {
	plain := fmt.Errorf("database connection failed")
	wrapped := fmt.Errorf("storage error: %w", plain)

	if apperr.IsTransient(wrapped) {
		t.Fatal("IsTransient should NOT match a plain error chain")
	}
}

func TestConfigurationError(t *testing.T) {
	err := apperr.NewConfiguration("newsapi", "NEWS_API_KEY is not set")

	if err.Error() != "source newsapi misconfigured: NEWS_API_KEY is not set" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var ce *apperr.ConfigurationError
	if !errors.As(fmt.Errorf("ingest: %w", err), &ce) {
		t.Fatal("errors.As should find ConfigurationError")
	}
}

func TestUnsupportedSourceError(t *testing.T) {
	err := apperr.NewUnsupportedSource("reddit")
	if err.Error() != "unsupported news source: reddit" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestNotFound(t *testing.T) {
	err := apperr.NewNotFound("article", "42")
	if !apperr.IsNotFound(fmt.Errorf("load: %w", err)) {
		t.Fatal("IsNotFound should match through wrapping")
	}
	if apperr.IsNotFound(errors.New("nope")) {
		t.Fatal("IsNotFound should not match a plain error")
	}
}
