// Package server assembles the services and HTTP routes of the WealthLens API.
package server

import (
	"gorm.io/gorm"

	"wealthlens/internal/cache"
	"wealthlens/internal/calendar"
	"wealthlens/internal/config"
	"wealthlens/internal/events"
	"wealthlens/internal/matching"
	"wealthlens/internal/services"
)

// Infra carries the external dependencies the services are built on.
// Nil Store, Locker and Publisher fall back to in-process implementations.
type Infra struct {
	DB           *gorm.DB
	SchemeSource services.SchemeSource
	NAVProvider  services.NAVProvider
	Calendar     *calendar.Calendar
	Store        cache.Store
	Locker       cache.Locker
	Publisher    events.Publisher
}

// Services is the full set of application services.
type Services struct {
	Assets    services.AssetServicer
	Audit     services.AuditServicer
	Schemes   services.SchemeServicer
	NAVs      services.NAVServicer
	Backfill  services.BackfillServicer
	NAVUpdate services.NAVUpdateServicer
	Portfolio services.PortfolioServicer
	Snapshots services.PortfolioSnapshotServicer
	Calendar  *calendar.Calendar
}

// NewServices wires the services from configuration and infrastructure.
func NewServices(cfg *config.Config, infra Infra) (*Services, error) {
	cal := infra.Calendar
	if cal == nil {
		var err error
		cal, err = calendar.New(cfg.MarketHolidays)
		if err != nil {
			return nil, err
		}
	}
	if infra.Locker == nil {
		infra.Locker = cache.NewMemoryLocker()
	}

	tokenizer := matching.NewTokenizer(nil)
	matchConfig := matching.DefaultConfig()
	matchConfig.Threshold = cfg.MatchThreshold
	matchConfig.TokenWeight = cfg.MatchTokenWeight
	matchConfig.StringWeight = cfg.MatchStrWeight
	ranker := matching.NewRanker(tokenizer, matchConfig)

	opts := services.JobOptions{
		Workers:            cfg.JobWorkers,
		ItemTimeout:        cfg.JobItemTimeout,
		RunTimeout:         cfg.JobRunTimeout,
		SchemeMasterMaxAge: cfg.SchemeMasterMaxAge,
		ISINCacheTTL:       cfg.ISINCacheTTL,
	}

	assets := services.NewAssetService(infra.DB)
	audit := services.NewAuditService(infra.DB)
	schemes := services.NewSchemeService(infra.DB, infra.SchemeSource, tokenizer)
	navs := services.NewNAVService(infra.DB)
	portfolio := services.NewPortfolioService(infra.DB, navs)

	return &Services{
		Assets:    assets,
		Audit:     audit,
		Schemes:   schemes,
		NAVs:      navs,
		Backfill:  services.NewBackfillService(assets, schemes, ranker, infra.Locker, infra.Publisher, audit, opts),
		NAVUpdate: services.NewNAVUpdateService(assets, schemes, navs, infra.NAVProvider, cal, infra.Store, infra.Locker, infra.Publisher, opts),
		Portfolio: portfolio,
		Snapshots: services.NewPortfolioSnapshotService(infra.DB, portfolio),
		Calendar:  cal,
	}, nil
}
