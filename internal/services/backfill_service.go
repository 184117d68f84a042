package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wealthlens/internal/cache"
	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/events"
	"wealthlens/internal/logger"
	"wealthlens/internal/matching"
	"wealthlens/internal/metrics"
	"wealthlens/internal/models"
)

// Rejection reasons reported by the ISIN backfill.
const (
	ReasonNoCandidates     = "no_candidates"
	ReasonBelowThreshold   = "no_match_above_threshold"
	ReasonMissingISIN      = "missing_isin"
	ReasonProcessingError  = "processing_error"
	ReasonPersistenceError = "persistence_error"

	unresolvedSampleSize = 10
	matchPreviewSize     = 10

	// An ISIN entered with the holding is taken as an exact match.
	isinLookupScore = 100

	resolutionSourceISIN = "isin"
	resolutionSourceName = "name"
)

// ISINResolvedPayload is published when an asset is mapped to a scheme.
type ISINResolvedPayload struct {
	AssetID    string  `json:"asset_id"`
	AssetName  string  `json:"asset_name"`
	ISIN       string  `json:"isin"`
	SchemeCode string  `json:"scheme_code"`
	Score      float64 `json:"score"`
}

// backfillService resolves unresolved fund assets to scheme codes and ISINs.
type backfillService struct {
	assets    AssetServicer
	schemes   SchemeServicer
	ranker    *matching.Ranker
	locker    cache.Locker
	publisher events.Publisher
	audit     AuditServicer
	opts      JobOptions
}

// NewBackfillService creates a new BackfillServicer. A nil locker or publisher
// falls back to an in-process lock and a no-op publisher; audit may be nil.
func NewBackfillService(
	assets AssetServicer,
	schemes SchemeServicer,
	ranker *matching.Ranker,
	locker cache.Locker,
	publisher events.Publisher,
	audit AuditServicer,
	opts JobOptions,
) BackfillServicer {
	if ranker == nil {
		ranker = matching.NewRanker(nil, matching.DefaultConfig())
	}
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &backfillService{
		assets:    assets,
		schemes:   schemes,
		ranker:    ranker,
		locker:    locker,
		publisher: publisher,
		audit:     audit,
		opts:      opts.withDefaults(),
	}
}

type assetOutcome struct {
	resolved bool
	reason   string
}

func (o assetOutcome) label() string {
	if o.resolved {
		return "resolved"
	}
	return o.reason
}

// RunISINBackfill matches every unresolved fund asset against the scheme
// master and writes back the ISIN and scheme code of accepted matches. With
// force set, already resolved funds are matched again. Per-asset failures are
// counted and never stop the run; failing to list assets aborts it.
func (s *backfillService) RunISINBackfill(ctx context.Context, force bool) (outcome *BackfillOutcome, err error) {
	started := time.Now()
	log := logger.Named(JobISINBackfill)

	lock, err := acquireJobLock(ctx, s.locker, JobISINBackfill, s.opts.lockTTL())
	if err != nil {
		return nil, err
	}
	defer releaseJobLock(lock, log)

	metrics.JobsInFlight.WithLabelValues(JobISINBackfill).Inc()
	defer metrics.JobsInFlight.WithLabelValues(JobISINBackfill).Dec()
	defer func() { recordJobRun(JobISINBackfill, started, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	assets, err := s.assets.ListUnresolvedFunds(ctx, force)
	if err != nil {
		log.Errorw("Failed to list unresolved funds", "error", err)
		return nil, err
	}
	log.Infow("ISIN backfill started", "assets", len(assets), "force", force, "workers", s.opts.Workers)

	outcomes := make([]assetOutcome, len(assets))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := range assets {
		g.Go(func() error {
			outcomes[i] = s.resolveAsset(ctx, &assets[i])
			return nil
		})
	}
	_ = g.Wait()

	outcome = &BackfillOutcome{
		Success:          true,
		Force:            force,
		Scanned:          len(assets),
		UnresolvedSample: []string{},
		RejectionReasons: map[string]int{},
	}
	for i, o := range outcomes {
		if o.resolved {
			outcome.Resolved++
			continue
		}
		outcome.Unresolved++
		outcome.RejectionReasons[o.reason]++
		if len(outcome.UnresolvedSample) < unresolvedSampleSize {
			outcome.UnresolvedSample = append(outcome.UnresolvedSample, assets[i].Name)
		}
	}
	outcome.DurationMS = time.Since(started).Milliseconds()

	log.Infow("ISIN backfill completed",
		"scanned", outcome.Scanned,
		"resolved", outcome.Resolved,
		"unresolved", outcome.Unresolved,
		"rejection_reasons", outcome.RejectionReasons,
		"duration_ms", outcome.DurationMS,
	)
	publish(ctx, s.publisher, log, events.Event{
		Type:    events.TypeJobCompleted,
		Key:     JobISINBackfill,
		Payload: outcome,
	})
	return outcome, nil
}

// resolveAsset matches one asset. Errors and panics become rejection reasons.
func (s *backfillService) resolveAsset(ctx context.Context, asset *models.Asset) (out assetOutcome) {
	log := logger.Named(JobISINBackfill).With("asset_id", asset.ID, "name", asset.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Panic while resolving asset", "panic", fmt.Sprint(r))
			out = assetOutcome{reason: ReasonProcessingError}
		}
		metrics.BackfillAssetsTotal.WithLabelValues(out.label()).Inc()
	}()

	itemCtx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
	defer cancel()

	if asset.IsResolved() && !asset.HasSchemeCode() {
		scheme, err := s.schemes.FindByISIN(itemCtx, *asset.ISIN)
		switch {
		case err == nil:
			return s.saveResolution(ctx, itemCtx, log, asset, *asset.ISIN, scheme.SchemeCode, isinLookupScore, resolutionSourceISIN)
		case !errors.Is(err, apperrors.ErrSchemeNotFound):
			log.Warnw("Failed to look up ISIN", "isin", *asset.ISIN, "error", err)
			return assetOutcome{reason: ReasonProcessingError}
		}
		log.Infow("ISIN not in scheme master, matching by name", "isin", *asset.ISIN)
	}

	candidates, err := s.schemes.Shortlist(itemCtx, asset.Name, matching.MaxCandidates)
	if err != nil {
		log.Warnw("Failed to fetch candidates", "error", err)
		return assetOutcome{reason: ReasonProcessingError}
	}

	result := s.ranker.Match(asset.Name, candidates)
	switch result.Outcome {
	case matching.OutcomeNoCandidates:
		log.Infow("No candidate schemes", "reason", ReasonNoCandidates)
		return assetOutcome{reason: ReasonNoCandidates}
	case matching.OutcomeBelowThreshold:
		log.Infow("Best candidate below threshold",
			"reason", ReasonBelowThreshold,
			"score", result.TopScore(),
			"scheme_code", result.Best.Scheme.SchemeCode,
		)
		return assetOutcome{reason: ReasonBelowThreshold}
	case matching.OutcomeMissingISIN:
		log.Infow("Best candidate has no ISIN",
			"reason", ReasonMissingISIN,
			"score", result.TopScore(),
			"scheme_code", result.Best.Scheme.SchemeCode,
		)
		return assetOutcome{reason: ReasonMissingISIN}
	}

	return s.saveResolution(ctx, itemCtx, log, asset, result.ISIN, result.SchemeCode, result.TopScore(), resolutionSourceName)
}

// saveResolution writes isin and schemeCode onto the asset, then records the
// audit entry and publishes the resolved event.
func (s *backfillService) saveResolution(
	ctx, itemCtx context.Context,
	log *zap.SugaredLogger,
	asset *models.Asset,
	isin, schemeCode string,
	score float64,
	source string,
) assetOutcome {
	if err := s.assets.SetResolution(itemCtx, asset.ID, isin, schemeCode); err != nil {
		log.Errorw("Failed to save resolution", "reason", ReasonPersistenceError, "isin", isin, "error", err)
		return assetOutcome{reason: ReasonPersistenceError}
	}

	log.Infow("Asset resolved", "isin", isin, "scheme_code", schemeCode, "score", score, "source", source)

	if s.audit != nil {
		s.audit.Log("", AuditActionResolveISIN, AuditResourceAsset, asset.ID, "", map[string]interface{}{
			"isin":        isin,
			"scheme_code": schemeCode,
			"score":       score,
			"source":      source,
		})
	}
	publish(ctx, s.publisher, log, events.Event{
		Type: events.TypeISINResolved,
		Key:  asset.ID,
		Payload: ISINResolvedPayload{
			AssetID:    asset.ID,
			AssetName:  asset.Name,
			ISIN:       isin,
			SchemeCode: schemeCode,
			Score:      score,
		},
	})
	return assetOutcome{resolved: true}
}

// MatchName runs the matcher for a free-text name without writing anything.
// Ranked is trimmed to the best few candidates.
func (s *backfillService) MatchName(ctx context.Context, name string) (*matching.Result, error) {
	candidates, err := s.schemes.Shortlist(ctx, name, matching.MaxCandidates)
	if err != nil {
		return nil, err
	}

	result := s.ranker.Match(name, candidates)
	if len(result.Ranked) > matchPreviewSize {
		result.Ranked = result.Ranked[:matchPreviewSize]
	}
	return &result, nil
}
