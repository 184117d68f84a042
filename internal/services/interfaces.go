package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"wealthlens/internal/matching"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
)

// HoldingInput holds the fields for recording a new holding. The asset is
// found by name and type, or created on first use.
type HoldingInput struct {
	Name          string
	AssetType     models.AssetType
	Symbol        *string
	ISIN          *string
	Quantity      float64
	InvestedValue int64
	CurrentValue  *int64
	Notes         string
}

// HoldingUpdate holds optional fields for updating a holding.
type HoldingUpdate struct {
	Quantity      *float64
	InvestedValue *int64
	CurrentValue  *int64
	Notes         *string
}

// AssetServicer defines the contract for asset and holding business logic.
type AssetServicer interface {
	AddHolding(userID string, input HoldingInput) (*models.Holding, error)
	GetUserHoldings(userID string, assetType *models.AssetType, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error)
	GetHoldingByID(userID, holdingID string) (*models.Holding, error)
	UpdateHolding(userID, holdingID string, update HoldingUpdate) (*models.Holding, error)
	DeleteHolding(userID, holdingID string) error
	GetAssetByID(assetID string) (*models.Asset, error)
	ListUnresolvedFunds(ctx context.Context, force bool) ([]models.Asset, error)
	SetResolution(ctx context.Context, assetID, isin, schemeCode string) error
	ListHeldFundISINs(ctx context.Context) ([]string, error)
}

// SchemeSource supplies the full scheme catalog.
type SchemeSource interface {
	FetchSchemeMaster(ctx context.Context) ([]models.SchemeMaster, error)
}

// SchemeServicer defines the contract for the scheme master reference store.
type SchemeServicer interface {
	Shortlist(ctx context.Context, name string, limit int) ([]models.SchemeMaster, error)
	FindByISIN(ctx context.Context, isin string) (*models.SchemeMaster, error)
	GetScheme(code string) (*models.SchemeMaster, error)
	SearchSchemes(query string, page pagination.PageRequest) (*pagination.PageResponse[models.SchemeMaster], error)
	UpsertSchemes(ctx context.Context, schemes []models.SchemeMaster) (int, error)
	LastRefreshedAt(ctx context.Context) (*time.Time, error)
	RefreshSchemeMaster(ctx context.Context) (int, error)
}

// NAVServicer defines the contract for the NAV time series.
type NAVServicer interface {
	HasNAV(ctx context.Context, schemeCode string, date time.Time) (bool, error)
	RecordNAV(ctx context.Context, schemeCode string, date time.Time, nav decimal.Decimal) (bool, error)
	GetLatestNAV(schemeCode string) (*models.SchemeNAV, error)
	LatestNAVs(ctx context.Context, schemeCodes []string) (map[string]models.SchemeNAV, error)
	GetNAVHistory(schemeCode string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.SchemeNAV], error)
}

// BackfillOutcome summarizes one ISIN backfill run.
type BackfillOutcome struct {
	Success          bool           `json:"success"`
	Force            bool           `json:"force"`
	Scanned          int            `json:"scanned"`
	Resolved         int            `json:"resolved"`
	Unresolved       int            `json:"unresolved"`
	UnresolvedSample []string       `json:"unresolved_sample"`
	RejectionReasons map[string]int `json:"rejection_reasons"`
	DurationMS       int64          `json:"duration_ms"`
}

// BackfillServicer defines the contract for resolving fund assets to schemes.
type BackfillServicer interface {
	RunISINBackfill(ctx context.Context, force bool) (*BackfillOutcome, error)
	MatchName(ctx context.Context, name string) (*matching.Result, error)
}

// SchemeNAVResult is the NAV update result for one scheme.
type SchemeNAVResult struct {
	SchemeCode string           `json:"scheme_code"`
	Success    bool             `json:"success"`
	Skipped    bool             `json:"skipped,omitempty"`
	NAV        *decimal.Decimal `json:"nav,omitempty"`
	NAVDate    string           `json:"nav_date,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// NAVUpdateOutcome summarizes one NAV update run.
type NAVUpdateOutcome struct {
	Success               bool              `json:"success"`
	TargetDate            string            `json:"target_date"`
	SchemeMasterRefreshed bool              `json:"scheme_master_refreshed"`
	Total                 int               `json:"total"`
	Updated               int               `json:"updated"`
	Skipped               int               `json:"skipped"`
	Failed                int               `json:"failed"`
	UnmappedISINs         []string          `json:"unmapped_isins,omitempty"`
	Results               []SchemeNAVResult `json:"results"`
	Error                 string            `json:"error,omitempty"`
	DurationMS            int64             `json:"duration_ms"`
}

// NAVUpdateServicer defines the contract for the daily NAV refresh.
type NAVUpdateServicer interface {
	RunNAVUpdate(ctx context.Context, schemeCodes []string) (*NAVUpdateOutcome, error)
}

// PortfolioSummary contains aggregated portfolio data across a user's holdings.
// Amounts are in paise.
type PortfolioSummary struct {
	TotalInvested int64                            `json:"total_invested"`
	CurrentValue  int64                            `json:"current_value"`
	TotalGainLoss int64                            `json:"total_gain_loss"`
	GainLossPct   float64                          `json:"gain_loss_pct"`
	HoldingCount  int                              `json:"holding_count"`
	Allocation    map[models.AssetType]TypeSummary `json:"allocation"`
}

// TypeSummary contains summary data for a single asset type.
type TypeSummary struct {
	Value      int64   `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PortfolioServicer defines the contract for portfolio aggregation.
type PortfolioServicer interface {
	GetSummary(userID string) (*PortfolioSummary, error)
}

// PortfolioSnapshotServicer defines the contract for daily portfolio snapshots.
type PortfolioSnapshotServicer interface {
	RecordSnapshots(ctx context.Context, date time.Time) (int, error)
	GetSnapshots(userID string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
