package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"spendify/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body %q: %v", rec.Body.String(), err)
	}
	return result
}

func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode, wantMessage string) map[string]interface{} {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, wantStatus, rec.Body.String())
	}
	body := parseBody(t, rec)
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	if wantCode != "" && body["code"] != wantCode {
		t.Errorf("code = %v, want %s", body["code"], wantCode)
	}
	if wantMessage != "" && body["message"] != wantMessage {
		t.Errorf("message = %v, want %q", body["message"], wantMessage)
	}
	return body
}
