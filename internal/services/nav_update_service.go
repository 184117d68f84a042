package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wealthlens/internal/amfi"
	"wealthlens/internal/cache"
	"wealthlens/internal/calendar"
	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/events"
	"wealthlens/internal/logger"
	"wealthlens/internal/metrics"
)

const isinCachePrefix = "isin:"

// NAVProvider fetches the published NAV of a scheme on or before a date.
type NAVProvider interface {
	FetchNAV(ctx context.Context, schemeCode string, date time.Time) (*amfi.NAVQuote, error)
}

// NAVUpdatedPayload is published when a new NAV row is stored.
type NAVUpdatedPayload struct {
	SchemeCode string `json:"scheme_code"`
	NAVDate    string `json:"nav_date"`
	NAV        string `json:"nav"`
}

// navUpdateService keeps held schemes supplied with the latest NAV.
type navUpdateService struct {
	assets    AssetServicer
	schemes   SchemeServicer
	navs      NAVServicer
	provider  NAVProvider
	calendar  *calendar.Calendar
	store     cache.Store
	locker    cache.Locker
	publisher events.Publisher
	opts      JobOptions
	now       func() time.Time
}

// NewNAVUpdateService creates a new NAVUpdateServicer. A nil calendar uses the
// default holidays; nil cache, lock and publisher dependencies fall back to
// in-process implementations.
func NewNAVUpdateService(
	assets AssetServicer,
	schemes SchemeServicer,
	navs NAVServicer,
	provider NAVProvider,
	cal *calendar.Calendar,
	store cache.Store,
	locker cache.Locker,
	publisher events.Publisher,
	opts JobOptions,
) NAVUpdateServicer {
	if cal == nil {
		cal, _ = calendar.New(nil)
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &navUpdateService{
		assets:    assets,
		schemes:   schemes,
		navs:      navs,
		provider:  provider,
		calendar:  cal,
		store:     store,
		locker:    locker,
		publisher: publisher,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// RunNAVUpdate stores the previous trading day's NAV for the given scheme
// codes, or for every scheme held through a resolved fund asset when none are
// given. Each step tolerates failure; per-scheme failures are reported in
// the outcome. The run succeeds when at least one scheme is up to date or
// there was nothing to update.
func (s *navUpdateService) RunNAVUpdate(ctx context.Context, schemeCodes []string) (outcome *NAVUpdateOutcome, err error) {
	started := time.Now()
	log := logger.Named(JobNAVUpdate)

	lock, err := acquireJobLock(ctx, s.locker, JobNAVUpdate, s.opts.lockTTL())
	if err != nil {
		return nil, err
	}
	defer releaseJobLock(lock, log)

	metrics.JobsInFlight.WithLabelValues(JobNAVUpdate).Inc()
	defer metrics.JobsInFlight.WithLabelValues(JobNAVUpdate).Dec()
	defer func() { recordJobRun(JobNAVUpdate, started, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	outcome = &NAVUpdateOutcome{Results: []SchemeNAVResult{}}
	outcome.SchemeMasterRefreshed = s.refreshSchemeMasterIfStale(ctx, log)

	target := s.calendar.PreviousTradingDay(s.now())
	outcome.TargetDate = calendar.FormatDate(target)

	codes := uniqueCodes(schemeCodes)
	if len(codes) == 0 {
		isins, listErr := s.assets.ListHeldFundISINs(ctx)
		if listErr != nil {
			log.Errorw("Failed to list held fund ISINs", "error", listErr)
			return nil, listErr
		}
		codes, outcome.UnmappedISINs = s.mapISINs(ctx, isins, log)
	}
	log.Infow("NAV update started", "target_date", outcome.TargetDate, "schemes", len(codes))

	results := make([]SchemeNAVResult, len(codes))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, code := range codes {
		g.Go(func() error {
			results[i] = s.updateScheme(ctx, code, target, log)
			return nil
		})
	}
	_ = g.Wait()

	outcome.Results = results
	outcome.Total = len(results)
	for _, r := range results {
		switch {
		case !r.Success:
			outcome.Failed++
		case r.Skipped:
			outcome.Skipped++
		default:
			outcome.Updated++
		}
	}
	outcome.Success = outcome.Total == 0 || outcome.Updated+outcome.Skipped > 0
	if outcome.Failed > 0 {
		outcome.Error = fmt.Sprintf("%d of %d scheme NAV updates failed", outcome.Failed, outcome.Total)
	}
	outcome.DurationMS = time.Since(started).Milliseconds()

	log.Infow("NAV update completed",
		"target_date", outcome.TargetDate,
		"total", outcome.Total,
		"updated", outcome.Updated,
		"skipped", outcome.Skipped,
		"failed", outcome.Failed,
		"unmapped_isins", len(outcome.UnmappedISINs),
		"duration_ms", outcome.DurationMS,
	)
	publish(ctx, s.publisher, log, events.Event{
		Type:    events.TypeJobCompleted,
		Key:     JobNAVUpdate,
		Payload: outcome,
	})
	return outcome, nil
}

// refreshSchemeMasterIfStale syncs the catalog when it is empty or older than
// the configured age. Failures are logged and the run continues.
func (s *navUpdateService) refreshSchemeMasterIfStale(ctx context.Context, log *zap.SugaredLogger) bool {
	last, err := s.schemes.LastRefreshedAt(ctx)
	if err != nil {
		log.Warnw("Failed to read scheme master age, skipping refresh", "error", err)
		return false
	}
	if last != nil && s.now().Sub(*last) < s.opts.SchemeMasterMaxAge {
		return false
	}

	n, err := s.schemes.RefreshSchemeMaster(ctx)
	if err != nil {
		log.Warnw("Scheme master refresh failed, continuing with existing data", "error", err)
		return false
	}
	log.Infow("Scheme master refreshed before NAV update", "schemes", n)
	return true
}

// mapISINs resolves ISINs to distinct scheme codes. Lookups are memoized for
// the run and cached in the store across runs.
func (s *navUpdateService) mapISINs(ctx context.Context, isins []string, log *zap.SugaredLogger) (codes, unmapped []string) {
	seen := make(map[string]string, len(isins))
	set := make(map[string]struct{}, len(isins))

	for _, isin := range isins {
		code, ok := s.lookupSchemeCode(ctx, isin, seen, log)
		if !ok {
			log.Warnw("No scheme found for ISIN, skipping", "isin", isin)
			unmapped = append(unmapped, isin)
			continue
		}
		if _, dup := set[code]; !dup {
			set[code] = struct{}{}
			codes = append(codes, code)
		}
	}

	sort.Strings(codes)
	return codes, unmapped
}

func (s *navUpdateService) lookupSchemeCode(ctx context.Context, isin string, seen map[string]string, log *zap.SugaredLogger) (string, bool) {
	if code, ok := seen[isin]; ok {
		return code, code != ""
	}

	if code, err := s.store.Get(ctx, isinCachePrefix+isin); err == nil && code != "" {
		seen[isin] = code
		return code, true
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		log.Warnw("ISIN cache read failed", "isin", isin, "error", err)
	}

	scheme, err := s.schemes.FindByISIN(ctx, isin)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSchemeNotFound) {
			log.Warnw("ISIN lookup failed", "isin", isin, "error", err)
		}
		seen[isin] = ""
		return "", false
	}

	seen[isin] = scheme.SchemeCode
	if err := s.store.Set(ctx, isinCachePrefix+isin, scheme.SchemeCode, s.opts.ISINCacheTTL); err != nil {
		log.Warnw("ISIN cache write failed", "isin", isin, "error", err)
	}
	return scheme.SchemeCode, true
}

// updateScheme brings one scheme up to date. A NAV already stored for the
// target date is skipped without calling the provider.
func (s *navUpdateService) updateScheme(ctx context.Context, code string, target time.Time, log *zap.SugaredLogger) (res SchemeNAVResult) {
	res.SchemeCode = code
	log = log.With("scheme_code", code)

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Panic while updating NAV", "panic", fmt.Sprint(r))
			res = SchemeNAVResult{SchemeCode: code, Error: "internal error"}
		}
		metrics.NAVUpdatesTotal.WithLabelValues(res.status()).Inc()
	}()

	itemCtx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
	defer cancel()

	has, err := s.navs.HasNAV(itemCtx, code, target)
	if err != nil {
		log.Warnw("Failed to check stored NAV", "error", err)
		res.Error = err.Error()
		return res
	}
	if has {
		res.Success = true
		res.Skipped = true
		res.NAVDate = calendar.FormatDate(target)
		return res
	}

	quote, err := s.provider.FetchNAV(itemCtx, code, target)
	if err != nil {
		log.Warnw("Failed to fetch NAV", "error", err)
		res.Error = err.Error()
		return res
	}

	inserted, err := s.navs.RecordNAV(itemCtx, code, quote.Date, quote.NAV)
	if err != nil {
		log.Warnw("Failed to store NAV", "nav_date", calendar.FormatDate(quote.Date), "error", err)
		res.Error = err.Error()
		return res
	}

	nav := quote.NAV
	res.Success = true
	res.Skipped = !inserted
	res.NAV = &nav
	res.NAVDate = calendar.FormatDate(quote.Date)

	if inserted {
		publish(ctx, s.publisher, log, events.Event{
			Type: events.TypeNAVUpdated,
			Key:  code,
			Payload: NAVUpdatedPayload{
				SchemeCode: code,
				NAVDate:    res.NAVDate,
				NAV:        nav.String(),
			},
		})
	}
	return res
}

func (r SchemeNAVResult) status() string {
	switch {
	case !r.Success:
		return "failed"
	case r.Skipped:
		return "skipped"
	default:
		return "updated"
	}
}

func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
