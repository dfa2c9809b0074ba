package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
)

// TestWriteErrorResponse は統一エラーフォーマットの書き込みを検証する。
func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteErrorResponse(rec, http.StatusConflict, model.NewEventFullError())

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeEventFull {
		t.Errorf("expected EVENT_FULL, got %s", body.Code)
	}
	if body.Category != "club" {
		t.Errorf("expected club category, got %s", body.Category)
	}
	if body.Action == "" {
		t.Error("expected action to be set")
	}
}

// TestStatusForAPIError はエラーコードとHTTPステータスの対応を検証する。
func TestStatusForAPIError(t *testing.T) {
	tests := []struct {
		name   string
		apiErr *model.APIError
		want   int
	}{
		{"already checked in", model.NewAlreadyCheckedInError(time.Date(2026, 4, 6, 15, 30, 0, 0, time.UTC)), http.StatusConflict},
		{"not checked in", model.NewNotCheckedInError(), http.StatusNotFound},
		{"member not found", model.NewMemberNotFoundError("123456"), http.StatusNotFound},
		{"duplicate member id", model.NewDuplicateMemberIDError("123456"), http.StatusConflict},
		{"invalid credentials", model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{"invalid member id", model.NewInvalidMemberIDError("abc"), http.StatusBadRequest},
		{"event full", model.NewEventFullError(), http.StatusConflict},
		{"ride not found", model.NewRideNotFoundError("ride-1"), http.StatusNotFound},
		{"no seats left", model.NewNoSeatsLeftError(), http.StatusConflict},
		{"invalid month", model.NewInvalidMonthError("2026/04"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForAPIError(tt.apiErr); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

// TestWriteInternalServerError は内部エラーの統一レスポンスを検証する。
func TestWriteInternalServerError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteInternalServerError(rec)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", body.Code)
	}
}
