package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/testutil"
)

func TestBoardHandler_Snapshot(t *testing.T) {
	board := json.RawMessage(`{"data":{"boards":[{"name":"Enrollments"}]}}`)

	tests := []struct {
		name           string
		secret         string
		query          string
		snapshotErr    error
		expectedStatus int
	}{
		{name: "matching secret", secret: "s3cret", query: "?secret=s3cret", expectedStatus: http.StatusOK},
		{name: "wrong secret", secret: "s3cret", query: "?secret=guess", expectedStatus: http.StatusUnauthorized},
		{name: "missing secret", secret: "s3cret", expectedStatus: http.StatusUnauthorized},
		{name: "unconfigured secret", secret: "", query: "?secret=", expectedStatus: http.StatusUnauthorized},
		{name: "provider failure", secret: "s3cret", query: "?secret=s3cret", snapshotErr: errors.New("timeout"), expectedStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &testutil.MockCRMService{Board: board, SnapshotError: tt.snapshotErr}
			handler := NewBoardHandler(svc, tt.secret, logger.Nop())

			req := httptest.NewRequest(http.MethodGet, "/api/monday"+tt.query, nil)
			rr := httptest.NewRecorder()

			handler.Snapshot(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusOK && rr.Body.String() != string(board) {
				t.Errorf("expected raw board body, got %s", rr.Body.String())
			}
		})
	}
}
