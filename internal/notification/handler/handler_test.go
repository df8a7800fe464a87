package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pipeline_backend/internal/notification/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeLister struct {
	subjectID uuid.UUID
	limit     int
	offset    int
}

func (f *fakeLister) ListBySubject(_ context.Context, subjectID uuid.UUID, limit, offset int) ([]repository.Notification, int, error) {
	f.subjectID, f.limit, f.offset = subjectID, limit, offset
	return []repository.Notification{{ID: uuid.New(), SubjectID: subjectID, Kind: "sla_breach"}}, 1, nil
}

func newEngine(lister Lister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(lister).RegisterRoutes(r.Group("/notifications"))
	return r
}

func TestListClampsPaging(t *testing.T) {
	lister := &fakeLister{}
	subject := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications?subjectId="+subject.String()+"&page=3&limit=500", nil)
	newEngine(lister).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if lister.subjectID != subject || lister.limit != maxLimit || lister.offset != 2*maxLimit {
		t.Errorf("unexpected paging: %+v", lister)
	}

	var body struct {
		Total int `json:"total"`
		Page  int `json:"page"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Total != 1 || body.Page != 3 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestListRejectsMissingSubject(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine(&fakeLister{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
