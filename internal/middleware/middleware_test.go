package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/metrics"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response body: %v\nbody: %s", err, rec.Body.String())
	}
	return body.Error.Code
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestPipelineAuthMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{"valid_api_key", "secret-pipeline-key", "secret-pipeline-key", http.StatusOK, ""},
		{"invalid_api_key", "secret-pipeline-key", "wrong-key", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"missing_api_key", "secret-pipeline-key", "", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"prefix_rejected", "secret-pipeline-key", "secret-pipeline", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"not_configured", "", "any-key", http.StatusServiceUnavailable, "PIPELINE_NOT_CONFIGURED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/pipeline/nav-update", PipelineAuthMiddleware(tt.configuredKey), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(http.MethodPost, "/pipeline/nav-update", http.NoBody)
			if tt.requestKey != "" {
				req.Header.Set(apiKeyHeader, tt.requestKey)
			}
			rec := serve(r, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErrorCode != "" {
				if code := errorCode(t, rec); code != tt.wantErrorCode {
					t.Errorf("error code = %q, want %q", code, tt.wantErrorCode)
				}
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey), "email": c.GetString(EmailKey)})
	})

	valid := jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	t.Run("valid_token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.SigningMethodHS256, Claims{Email: "a@example.com", RegisteredClaims: valid})
		req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := serve(r, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["user_id"] != "user-42" || body["email"] != "a@example.com" {
			t.Errorf("unexpected identity: %v", body)
		}
	})

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing_header", "", "UNAUTHORIZED"},
		{"wrong_scheme", "Basic abc", "UNAUTHORIZED"},
		{"wrong_secret", "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, valid), "INVALID_TOKEN"},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}), "INVALID_TOKEN"},
		{"missing_subject", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}), "INVALID_TOKEN"},
		{"hs512_rejected", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, valid), "INVALID_TOKEN"},
		{"garbage", "Bearer not-a-token", "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(r, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) { _ = c.Error(apperrors.ErrJobAlreadyRunning) })
	r.GET("/plain", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })

	t.Run("app_error", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/app", http.NoBody))
		if rec.Code != http.StatusConflict || errorCode(t, rec) != "JOB_ALREADY_RUNNING" {
			t.Errorf("unexpected response: %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unexpected_error", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/plain", http.NoBody))
		if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != "INTERNAL_ERROR" {
			t.Errorf("unexpected response: %d %s", rec.Code, rec.Body.String())
		}
	})
}

func TestRequestLogging(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	t.Run("generates_id", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
		id := rec.Header().Get(requestIDHeader)
		if id == "" || rec.Body.String() != id {
			t.Errorf("expected generated request id in header and context, got %q / %q", id, rec.Body.String())
		}
	})

	t.Run("reuses_incoming_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set(requestIDHeader, "run-2026-10-16")
		rec := serve(r, req)
		if rec.Header().Get(requestIDHeader) != "run-2026-10-16" {
			t.Errorf("expected incoming id to be reused, got %q", rec.Header().Get(requestIDHeader))
		}
	})
}

func TestMetrics(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/schemes/:code", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/schemes/:code", "204")
	before := testutil.ToFloat64(counter)

	serve(r, httptest.NewRequest(http.MethodGet, "/schemes/119018", http.NoBody))
	serve(r, httptest.NewRequest(http.MethodGet, "/schemes/120716", http.NoBody))

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("expected 2 requests recorded under the route template, got %v", got)
	}
}
