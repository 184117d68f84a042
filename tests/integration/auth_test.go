package integration

import (
	"net/http"
	"testing"
)

func TestAuthBoundaries(t *testing.T) {
	app := setupApp(t)

	t.Run("health_is_public", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/api/health", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("user_routes_require_token", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/api/v1/holdings", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("token_from_other_issuer_rejected", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/api/v1/holdings", "", "not.a.jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("pipeline_requires_api_key", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/api/v1/pipeline/isin-backfill", "", token(t, "user-a"))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("metrics_exposed", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/metrics", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
