package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/logger"
	"wealthlens/internal/matching"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
)

const (
	// shortlistScanLimit bounds the rows read for one prefilter query.
	shortlistScanLimit = 2000
	// shortlistRankTokens bounds the tokens scored inside the prefilter query.
	shortlistRankTokens = 12
	upsertBatchSize     = 500
)

// schemeService handles the scheme master reference store.
type schemeService struct {
	db        *gorm.DB
	source    SchemeSource
	tokenizer *matching.Tokenizer
	scanLimit int
}

// NewSchemeService creates a new SchemeServicer. source may be nil when the
// catalog is managed elsewhere.
func NewSchemeService(db *gorm.DB, source SchemeSource, tokenizer *matching.Tokenizer) SchemeServicer {
	if tokenizer == nil {
		tokenizer = matching.NewTokenizer(nil)
	}
	return &schemeService{db: db, source: source, tokenizer: tokenizer, scanLimit: shortlistScanLimit}
}

// Shortlist returns up to limit schemes likely to match name. Rows containing
// the most selective token (the first fund house token, else the longest
// descriptive token) are ranked by shared core tokens, ties by scheme code.
// The query itself orders rows by how many of the name's tokens they contain,
// so a large fund house cannot push the right scheme past the scan limit.
// Only schemes with at least one ISIN are returned.
func (s *schemeService) Shortlist(ctx context.Context, name string, limit int) ([]models.SchemeMaster, error) {
	if limit <= 0 || limit > matching.MaxCandidates {
		limit = matching.MaxCandidates
	}

	tokens := s.tokenizer.Analyze(name).Tokens
	pivot := shortlistPivot(tokens)
	if pivot == "" {
		return []models.SchemeMaster{}, nil
	}

	var rows []models.SchemeMaster
	if err := s.db.WithContext(ctx).
		Where("LOWER(scheme_name) LIKE ?", "%"+pivot+"%").
		Where("(isin_growth IS NOT NULL OR isin_div_payout IS NOT NULL OR isin_div_reinvestment IS NOT NULL)").
		Clauses(overlapOrder(tokens.All(), pivot)).
		Limit(s.scanLimit).
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	want := make(map[string]struct{}, tokens.Len())
	for _, tok := range tokens.All() {
		want[tok] = struct{}{}
	}

	overlap := make(map[string]int, len(rows))
	for i := range rows {
		n := 0
		for _, tok := range s.tokenizer.Analyze(rows[i].SchemeName).Tokens.All() {
			if _, ok := want[tok]; ok {
				n++
			}
		}
		overlap[rows[i].SchemeCode] = n
	}

	sort.SliceStable(rows, func(i, j int) bool {
		oi, oj := overlap[rows[i].SchemeCode], overlap[rows[j].SchemeCode]
		if oi != oj {
			return oi > oj
		}
		return rows[i].SchemeCode < rows[j].SchemeCode
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// overlapOrder orders rows by the number of tokens their lowercased name
// contains, then by scheme code.
func overlapOrder(tokens []string, pivot string) clause.OrderBy {
	seen := map[string]struct{}{pivot: {}}
	var terms []string
	var vars []interface{}
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, "CASE WHEN LOWER(scheme_name) LIKE ? THEN 1 ELSE 0 END")
		vars = append(vars, "%"+tok+"%")
		if len(terms) == shortlistRankTokens {
			break
		}
	}
	if len(terms) == 0 {
		return clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "scheme_code"}}}}
	}
	return clause.OrderBy{Expression: clause.Expr{
		SQL:                "(" + strings.Join(terms, " + ") + ") DESC, scheme_code ASC",
		Vars:               vars,
		WithoutParentheses: true,
	}}
}

func shortlistPivot(tokens matching.TokenSet) string {
	if len(tokens.AMC) > 0 {
		return tokens.AMC[0]
	}
	pivot := ""
	for _, bucket := range [][]string{tokens.Other, tokens.Type} {
		for _, tok := range bucket {
			if len(tok) > len(pivot) {
				pivot = tok
			}
		}
	}
	return pivot
}

// FindByISIN returns the scheme carrying isin in any settlement variant.
func (s *schemeService) FindByISIN(ctx context.Context, isin string) (*models.SchemeMaster, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))

	var scheme models.SchemeMaster
	if err := s.db.WithContext(ctx).
		Where("isin_growth = ? OR isin_div_payout = ? OR isin_div_reinvestment = ?", isin, isin, isin).
		Order("scheme_code ASC").
		First(&scheme).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSchemeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &scheme, nil
}

// GetScheme returns a scheme by its code.
func (s *schemeService) GetScheme(code string) (*models.SchemeMaster, error) {
	var scheme models.SchemeMaster
	if err := s.db.Where("scheme_code = ?", code).First(&scheme).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSchemeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &scheme, nil
}

// SearchSchemes returns a paginated list of schemes whose name contains every
// word of query, ordered by name.
func (s *schemeService) SearchSchemes(query string, page pagination.PageRequest) (*pagination.PageResponse[models.SchemeMaster], error) {
	base := s.db.Model(&models.SchemeMaster{})
	for _, word := range strings.Fields(strings.ToLower(query)) {
		base = base.Where("LOWER(scheme_name) LIKE ?", "%"+word+"%")
	}

	result, err := pagination.Find[models.SchemeMaster](base, page, "scheme_name ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpsertSchemes inserts or replaces catalog rows keyed by scheme code.
func (s *schemeService) UpsertSchemes(ctx context.Context, schemes []models.SchemeMaster) (int, error) {
	if len(schemes) == 0 {
		return 0, nil
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scheme_code"}},
			UpdateAll: true,
		}).
		CreateInBatches(schemes, upsertBatchSize).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return len(schemes), nil
}

// LastRefreshedAt returns the newest last_updated timestamp in the catalog,
// or nil when it is empty.
func (s *schemeService) LastRefreshedAt(ctx context.Context) (*time.Time, error) {
	var latest models.SchemeMaster
	err := s.db.WithContext(ctx).Order("last_updated DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	t := latest.LastUpdated
	return &t, nil
}

// RefreshSchemeMaster replaces the catalog with the source's current list.
func (s *schemeService) RefreshSchemeMaster(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, apperrors.WithMessage(apperrors.ErrUpstreamUnavailable, "No scheme master source configured")
	}

	started := time.Now()
	schemes, err := s.source.FetchSchemeMaster(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err)
	}

	n, err := s.UpsertSchemes(ctx, schemes)
	if err != nil {
		return 0, err
	}

	logger.Get().Infow("Scheme master refreshed", "schemes", n, "duration", time.Since(started))
	return n, nil
}
