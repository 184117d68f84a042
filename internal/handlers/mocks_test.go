package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wealthlens/internal/matching"
	"wealthlens/internal/middleware"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
	"wealthlens/internal/services"
	"wealthlens/internal/validator"
)

// --- mock services ---

type mockAssetService struct {
	addHoldingFn      func(userID string, input services.HoldingInput) (*models.Holding, error)
	getUserHoldingsFn func(userID string, assetType *models.AssetType, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error)
	getHoldingByIDFn  func(userID, holdingID string) (*models.Holding, error)
	updateHoldingFn   func(userID, holdingID string, update services.HoldingUpdate) (*models.Holding, error)
	deleteHoldingFn   func(userID, holdingID string) error
}

var _ services.AssetServicer = (*mockAssetService)(nil)

func (m *mockAssetService) AddHolding(userID string, input services.HoldingInput) (*models.Holding, error) {
	if m.addHoldingFn != nil {
		return m.addHoldingFn(userID, input)
	}
	return &models.Holding{}, nil
}

func (m *mockAssetService) GetUserHoldings(userID string, assetType *models.AssetType, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error) {
	if m.getUserHoldingsFn != nil {
		return m.getUserHoldingsFn(userID, assetType, page)
	}
	resp := pagination.NewPageResponse([]models.Holding{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAssetService) GetHoldingByID(userID, holdingID string) (*models.Holding, error) {
	if m.getHoldingByIDFn != nil {
		return m.getHoldingByIDFn(userID, holdingID)
	}
	return &models.Holding{}, nil
}

func (m *mockAssetService) UpdateHolding(userID, holdingID string, update services.HoldingUpdate) (*models.Holding, error) {
	if m.updateHoldingFn != nil {
		return m.updateHoldingFn(userID, holdingID, update)
	}
	return &models.Holding{}, nil
}

func (m *mockAssetService) DeleteHolding(userID, holdingID string) error {
	if m.deleteHoldingFn != nil {
		return m.deleteHoldingFn(userID, holdingID)
	}
	return nil
}

func (m *mockAssetService) GetAssetByID(string) (*models.Asset, error) { return &models.Asset{}, nil }

func (m *mockAssetService) ListUnresolvedFunds(context.Context, bool) ([]models.Asset, error) {
	return nil, nil
}

func (m *mockAssetService) SetResolution(context.Context, string, string, string) error { return nil }

func (m *mockAssetService) ListHeldFundISINs(context.Context) ([]string, error) { return nil, nil }

type mockSchemeService struct {
	getSchemeFn     func(code string) (*models.SchemeMaster, error)
	searchSchemesFn func(query string, page pagination.PageRequest) (*pagination.PageResponse[models.SchemeMaster], error)
	refreshFn       func(ctx context.Context) (int, error)
}

var _ services.SchemeServicer = (*mockSchemeService)(nil)

func (m *mockSchemeService) Shortlist(context.Context, string, int) ([]models.SchemeMaster, error) {
	return nil, nil
}

func (m *mockSchemeService) FindByISIN(context.Context, string) (*models.SchemeMaster, error) {
	return &models.SchemeMaster{}, nil
}

func (m *mockSchemeService) GetScheme(code string) (*models.SchemeMaster, error) {
	if m.getSchemeFn != nil {
		return m.getSchemeFn(code)
	}
	return &models.SchemeMaster{SchemeCode: code}, nil
}

func (m *mockSchemeService) SearchSchemes(query string, page pagination.PageRequest) (*pagination.PageResponse[models.SchemeMaster], error) {
	if m.searchSchemesFn != nil {
		return m.searchSchemesFn(query, page)
	}
	resp := pagination.NewPageResponse([]models.SchemeMaster{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockSchemeService) UpsertSchemes(_ context.Context, schemes []models.SchemeMaster) (int, error) {
	return len(schemes), nil
}

func (m *mockSchemeService) LastRefreshedAt(context.Context) (*time.Time, error) { return nil, nil }

func (m *mockSchemeService) RefreshSchemeMaster(ctx context.Context) (int, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return 0, nil
}

type mockNAVService struct {
	getLatestNAVFn  func(code string) (*models.SchemeNAV, error)
	getNAVHistoryFn func(code string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.SchemeNAV], error)
}

var _ services.NAVServicer = (*mockNAVService)(nil)

func (m *mockNAVService) HasNAV(context.Context, string, time.Time) (bool, error) { return false, nil }

func (m *mockNAVService) RecordNAV(context.Context, string, time.Time, decimal.Decimal) (bool, error) {
	return true, nil
}

func (m *mockNAVService) GetLatestNAV(code string) (*models.SchemeNAV, error) {
	if m.getLatestNAVFn != nil {
		return m.getLatestNAVFn(code)
	}
	return &models.SchemeNAV{SchemeCode: code}, nil
}

func (m *mockNAVService) LatestNAVs(context.Context, []string) (map[string]models.SchemeNAV, error) {
	return map[string]models.SchemeNAV{}, nil
}

func (m *mockNAVService) GetNAVHistory(code string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.SchemeNAV], error) {
	if m.getNAVHistoryFn != nil {
		return m.getNAVHistoryFn(code, from, to, page)
	}
	resp := pagination.NewPageResponse([]models.SchemeNAV{}, 1, 20, 0)
	return &resp, nil
}

type mockBackfillService struct {
	runFn   func(ctx context.Context, force bool) (*services.BackfillOutcome, error)
	matchFn func(ctx context.Context, name string) (*matching.Result, error)
}

var _ services.BackfillServicer = (*mockBackfillService)(nil)

func (m *mockBackfillService) RunISINBackfill(ctx context.Context, force bool) (*services.BackfillOutcome, error) {
	if m.runFn != nil {
		return m.runFn(ctx, force)
	}
	return &services.BackfillOutcome{Success: true}, nil
}

func (m *mockBackfillService) MatchName(ctx context.Context, name string) (*matching.Result, error) {
	if m.matchFn != nil {
		return m.matchFn(ctx, name)
	}
	return &matching.Result{Outcome: matching.OutcomeNoCandidates}, nil
}

type mockNAVUpdateService struct {
	runFn func(ctx context.Context, schemeCodes []string) (*services.NAVUpdateOutcome, error)
}

var _ services.NAVUpdateServicer = (*mockNAVUpdateService)(nil)

func (m *mockNAVUpdateService) RunNAVUpdate(ctx context.Context, schemeCodes []string) (*services.NAVUpdateOutcome, error) {
	if m.runFn != nil {
		return m.runFn(ctx, schemeCodes)
	}
	return &services.NAVUpdateOutcome{Success: true}, nil
}

type mockPortfolioService struct {
	getSummaryFn func(userID string) (*services.PortfolioSummary, error)
}

var _ services.PortfolioServicer = (*mockPortfolioService)(nil)

func (m *mockPortfolioService) GetSummary(userID string) (*services.PortfolioSummary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(userID)
	}
	return &services.PortfolioSummary{}, nil
}

type mockSnapshotService struct {
	recordFn       func(ctx context.Context, date time.Time) (int, error)
	getSnapshotsFn func(userID string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error)
}

var _ services.PortfolioSnapshotServicer = (*mockSnapshotService)(nil)

func (m *mockSnapshotService) RecordSnapshots(ctx context.Context, date time.Time) (int, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, date)
	}
	return 0, nil
}

func (m *mockSnapshotService) GetSnapshots(userID string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error) {
	if m.getSnapshotsFn != nil {
		return m.getSnapshotsFn(userID, from, to, page)
	}
	resp := pagination.NewPageResponse([]models.PortfolioSnapshot{}, 1, 20, 0)
	return &resp, nil
}

type mockAuditService struct {
	mu      sync.Mutex
	actions []string
}

func (m *mockAuditService) Log(_, action, _, _, _ string, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// doChunkedRequest sends body without a Content-Length, as a chunked client would.
func doChunkedRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
