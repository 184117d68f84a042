package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
	"wealthlens/internal/services"
)

const testHoldingID = "0192a3b4-5c6d-7e8f-9a0b-1c2d3e4f5a6b"

func setupHoldingRouter(handler *HoldingHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID("user-1"))
	auth.POST("/holdings", handler.AddHolding)
	auth.GET("/holdings", handler.GetHoldings)
	auth.GET("/holdings/:id", handler.GetHolding)
	auth.PUT("/holdings/:id", handler.UpdateHolding)
	auth.DELETE("/holdings/:id", handler.DeleteHolding)
	return r
}

func TestHoldingHandler_AddHolding(t *testing.T) {
	t.Run("returns_201_on_success", func(t *testing.T) {
		var got services.HoldingInput
		svc := &mockAssetService{
			addHoldingFn: func(userID string, input services.HoldingInput) (*models.Holding, error) {
				if userID != "user-1" {
					t.Errorf("expected user-1, got %s", userID)
				}
				got = input
				h := &models.Holding{UserID: userID, Quantity: input.Quantity}
				h.ID = testHoldingID
				return h, nil
			},
		}
		audit := &mockAuditService{}
		r := setupHoldingRouter(NewHoldingHandler(svc, audit))

		rec := doRequest(r, http.MethodPost, "/holdings",
			`{"name":"HDFC Top 100 Direct Growth","asset_type":"mutual_fund","quantity":12.5,"invested_value":150000}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.AssetType != models.AssetTypeMutualFund || got.InvestedValue != 150000 || got.ISIN != nil {
			t.Errorf("unexpected input passed to service: %+v", got)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CREATE_HOLDING" {
			t.Errorf("expected CREATE_HOLDING audit, got %v", audit.actions)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing_name", `{"asset_type":"mutual_fund","quantity":1}`},
		{"unknown_asset_type", `{"name":"Bitcoin","asset_type":"crypto","quantity":1}`},
		{"invalid_isin", `{"name":"HDFC Top 100","asset_type":"mutual_fund","isin":"XYZ","quantity":1}`},
		{"negative_quantity", `{"name":"HDFC Top 100","asset_type":"mutual_fund","quantity":-1}`},
	}
	for _, tt := range tests {
		t.Run("returns_400_"+tt.name, func(t *testing.T) {
			r := setupHoldingRouter(NewHoldingHandler(&mockAssetService{}, &mockAuditService{}))

			rec := doRequest(r, http.MethodPost, "/holdings", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns_401_without_user", func(t *testing.T) {
		r := gin.New()
		r.POST("/holdings", NewHoldingHandler(&mockAssetService{}, &mockAuditService{}).AddHolding)

		rec := doRequest(r, http.MethodPost, "/holdings", `{}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestHoldingHandler_GetHoldings(t *testing.T) {
	t.Run("passes_asset_type_filter", func(t *testing.T) {
		svc := &mockAssetService{
			getUserHoldingsFn: func(_ string, assetType *models.AssetType, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error) {
				if assetType == nil || *assetType != models.AssetTypeMutualFund {
					t.Errorf("expected mutual_fund filter, got %v", assetType)
				}
				if page.Page != 2 {
					t.Errorf("expected page 2, got %d", page.Page)
				}
				resp := pagination.NewPageResponse([]models.Holding{{UserID: "user-1"}}, 2, 20, 21)
				return &resp, nil
			},
		}
		r := setupHoldingRouter(NewHoldingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, http.MethodGet, "/holdings?asset_type=mutual_fund&page=2", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["total_items"].(float64) != 21 {
			t.Error("expected total_items=21")
		}
	})

	t.Run("returns_400_for_unknown_type", func(t *testing.T) {
		r := setupHoldingRouter(NewHoldingHandler(&mockAssetService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodGet, "/holdings?asset_type=crypto", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHoldingHandler_GetHolding(t *testing.T) {
	t.Run("returns_400_for_invalid_id", func(t *testing.T) {
		r := setupHoldingRouter(NewHoldingHandler(&mockAssetService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodGet, "/holdings/42", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns_404_when_missing", func(t *testing.T) {
		svc := &mockAssetService{
			getHoldingByIDFn: func(string, string) (*models.Holding, error) {
				return nil, apperrors.ErrHoldingNotFound
			},
		}
		r := setupHoldingRouter(NewHoldingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, http.MethodGet, "/holdings/"+testHoldingID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "HOLDING_NOT_FOUND")
	})
}

func TestHoldingHandler_UpdateHolding(t *testing.T) {
	t.Run("returns_200_with_partial_update", func(t *testing.T) {
		svc := &mockAssetService{
			updateHoldingFn: func(_, id string, update services.HoldingUpdate) (*models.Holding, error) {
				if update.Quantity == nil || *update.Quantity != 20 || update.InvestedValue != nil {
					t.Errorf("unexpected update: %+v", update)
				}
				h := &models.Holding{Quantity: *update.Quantity}
				h.ID = id
				return h, nil
			},
		}
		r := setupHoldingRouter(NewHoldingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPut, "/holdings/"+testHoldingID, `{"quantity":20}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns_400_for_negative_value", func(t *testing.T) {
		r := setupHoldingRouter(NewHoldingHandler(&mockAssetService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodPut, "/holdings/"+testHoldingID, `{"current_value":-5}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHoldingHandler_DeleteHolding(t *testing.T) {
	t.Run("returns_200_on_success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupHoldingRouter(NewHoldingHandler(&mockAssetService{}, audit))

		rec := doRequest(r, http.MethodDelete, "/holdings/"+testHoldingID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["message"] != "Holding deleted successfully" {
			t.Error("unexpected message")
		}
		if len(audit.actions) != 1 || audit.actions[0] != "DELETE_HOLDING" {
			t.Errorf("expected DELETE_HOLDING audit, got %v", audit.actions)
		}
	})

	t.Run("returns_500_on_unexpected_error", func(t *testing.T) {
		svc := &mockAssetService{
			deleteHoldingFn: func(string, string) error { return fmt.Errorf("database error") },
		}
		r := setupHoldingRouter(NewHoldingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, http.MethodDelete, "/holdings/"+testHoldingID, "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INTERNAL_ERROR")
	})
}
