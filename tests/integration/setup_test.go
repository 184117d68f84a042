package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"wealthlens/internal/amfi"
	"wealthlens/internal/config"
	"wealthlens/internal/logger"
	"wealthlens/internal/middleware"
	"wealthlens/internal/server"
	"wealthlens/internal/testutil"
	"wealthlens/internal/validator"
)

const (
	testJWTSecret  = "integration-secret"
	testPipeKey    = "integration-pipeline-key"
	testNAVPerUnit = "120.5000"
)

// navAllFixture is a trimmed AMFI NAVAll.txt.
const navAllFixture = `Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date

Open Ended Schemes(Equity Scheme - Large Cap Fund)

HDFC Mutual Fund

119018;INF179K01XQ0;-;HDFC Top 100 Fund - Direct Plan - Growth;1123.4560;15-Oct-2026
149288;INF179KC1DH4;-;HDFC NIFTY NEXT 50 INDEX FUND - DIRECT PLAN - GROWTH OPTION;15.2340;15-Oct-2026
149289;INF179KC1DG6;-;HDFC NIFTY NEXT 50 INDEX FUND - REGULAR PLAN - GROWTH OPTION;14.9870;15-Oct-2026

ICICI Prudential Mutual Fund

120716;INF109K012R6;-;ICICI Prudential Nifty Next 50 Index Fund - Direct Plan - Growth;55.1200;15-Oct-2026
`

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Provider *httptest.Server
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// providerHandler serves NAVAll.txt and an mfapi.in history where every
// scheme published testNAVPerUnit on each of the last 15 days.
func providerHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/NAVAll.txt" {
		_, _ = w.Write([]byte(navAllFixture))
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/mf/") {
		http.NotFound(w, r)
		return
	}

	type entry struct {
		Date string `json:"date"`
		NAV  string `json:"nav"`
	}
	data := make([]entry, 0, 15)
	today := time.Now().UTC()
	for i := 0; i < 15; i++ {
		data = append(data, entry{Date: today.AddDate(0, 0, -i).Format("02-01-2006"), NAV: testNAVPerUnit})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "SUCCESS", "data": data})
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite and a fake AMFI provider.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	provider := httptest.NewServer(http.HandlerFunc(providerHandler))
	t.Cleanup(func() {
		provider.Close()
		testutil.TeardownTestDB(t, db)
	})

	cfg := &config.Config{
		JobWorkers:       2,
		JobItemTimeout:   5 * time.Second,
		JobRunTimeout:    time.Minute,
		MatchThreshold:   60,
		MatchTokenWeight: 0.7,
		MatchStrWeight:   0.3,
	}
	client := amfi.NewClient(provider.Client(), provider.URL+"/NAVAll.txt", provider.URL)

	svc, err := server.NewServices(cfg, server.Infra{
		DB:           db,
		SchemeSource: client,
		NAVProvider:  client,
	})
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}

	router := server.NewRouter(svc, server.RouterConfig{
		AuthJWTSecret:  testJWTSecret,
		PipelineAPIKey: testPipeKey,
	})

	return &testApp{DB: db, Router: router, Provider: provider}
}

// token signs an access token for userID the way the identity provider does.
func token(t *testing.T, userID string) string {
	t.Helper()
	claims := middleware.Claims{
		Email: userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// pipeline calls a pipeline endpoint with the API key.
func (app *testApp) pipeline(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline"+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testPipeKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// addHolding creates a holding and returns its JSON object.
func (app *testApp) addHolding(t *testing.T, tok, body string) map[string]interface{} {
	t.Helper()
	rec := app.request(http.MethodPost, "/api/v1/holdings", body, tok)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add holding failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["holding"].(map[string]interface{})
}

func fundHolding(name string, quantity float64, invested int64) string {
	return fmt.Sprintf(`{"name":%q,"asset_type":"mutual_fund","quantity":%g,"invested_value":%d}`, name, quantity, invested)
}
