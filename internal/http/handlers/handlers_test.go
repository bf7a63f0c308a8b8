package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/service"
)

func newTestRouter() (*gin.Engine, *Handler) {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		Missions:  &service.MissionService{},
		Checks:    &service.CheckService{},
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}
	r := gin.New()
	r.POST("/api/missions", h.CreateMission)
	r.PUT("/api/missions/:id/status", h.UpdateMissionStatus)
	r.POST("/api/checks/:id", h.UpdateCheck)
	r.GET("/api/missions/:id", h.GetMission)
	return r, h
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body == "" {
		rd = bytes.NewBuffer(nil)
	} else {
		rd = bytes.NewBufferString(body)
	}
	req, _ := http.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error.Code
}

func TestCreateMissionRejectsMissingCesta(t *testing.T) {
	r, _ := newTestRouter()
	w := doJSON(r, http.MethodPost, "/api/missions", `{"created_by":"op1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "VALIDATION_ERROR" {
		t.Errorf("error code = %s, want VALIDATION_ERROR", code)
	}
}

func TestCreateMissionRejectsMalformedBody(t *testing.T) {
	r, _ := newTestRouter()
	w := doJSON(r, http.MethodPost, "/api/missions", `{"cesta":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateCheckRejectsUnknownOutcome(t *testing.T) {
	r, _ := newTestRouter()
	w := doJSON(r, http.MethodPost, "/api/checks/1", `{"outcome":"MAYBE"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "FOUND") {
		t.Errorf("error should name the accepted outcomes, got %s", w.Body.String())
	}
}

func TestUpdateMissionStatusOnlyAcceptsAbandoned(t *testing.T) {
	r, _ := newTestRouter()
	for _, status := range []string{"RESOLVED", "OPEN", "IN_PROGRESS", "DONE"} {
		w := doJSON(r, http.MethodPut, "/api/missions/1/status", `{"status":"`+status+`"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status %s: expected 400, got %d", status, w.Code)
		}
	}
}

func TestPathIDRejectsNonNumeric(t *testing.T) {
	r, _ := newTestRouter()
	for _, path := range []string{"/api/missions/abc", "/api/missions/-1", "/api/missions/0"} {
		w := doJSON(r, http.MethodGet, path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.NotFound("missing"), http.StatusNotFound},
		{errs.Validation("bad"), http.StatusBadRequest},
		{errs.Conflict("taken"), http.StatusConflict},
		{errs.External(nil, "down"), http.StatusBadGateway},
		{errs.DB(nil, "broken"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeServiceError(c, tc.err)
		if w.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}
