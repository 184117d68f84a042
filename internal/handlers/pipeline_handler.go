package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wealthlens/internal/calendar"
	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/services"
)

// PipelineHandler triggers the data pipeline jobs. Routes are guarded by the
// pipeline API key rather than user tokens.
type PipelineHandler struct {
	backfillService  services.BackfillServicer
	navUpdateService services.NAVUpdateServicer
	schemeService    services.SchemeServicer
	snapshotService  services.PortfolioSnapshotServicer
	calendar         *calendar.Calendar
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(
	backfillService services.BackfillServicer,
	navUpdateService services.NAVUpdateServicer,
	schemeService services.SchemeServicer,
	snapshotService services.PortfolioSnapshotServicer,
	cal *calendar.Calendar,
) *PipelineHandler {
	return &PipelineHandler{
		backfillService:  backfillService,
		navUpdateService: navUpdateService,
		schemeService:    schemeService,
		snapshotService:  snapshotService,
		calendar:         cal,
	}
}

// NAVUpdateRequest represents the optional request payload for a NAV update.
type NAVUpdateRequest struct {
	SchemeCodes []string `json:"scheme_codes" binding:"omitempty,max=500,dive,scheme_code"`
}

// RecordSnapshotsRequest represents the request payload for recording snapshots.
type RecordSnapshotsRequest struct {
	Date string `json:"date"`
}

// RunISINBackfill handles triggering the ISIN backfill.
// @Summary     Run ISIN backfill
// @Description Match unresolved mutual fund assets to scheme codes and ISINs
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true  "Pipeline API key"
// @Param       force     query  bool   false "Re-resolve funds that already have an ISIN"
// @Success     200 {object} services.BackfillOutcome "Backfill summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     409 {object} ErrorResponse "Backfill already running"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/isin-backfill [post]
func (h *PipelineHandler) RunISINBackfill(c *gin.Context) {
	force := false
	if v := c.Query("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "force must be true or false"))
			return
		}
		force = parsed
	}

	outcome, err := h.backfillService.RunISINBackfill(c.Request.Context(), force)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// RunNAVUpdate handles triggering the NAV update.
// @Summary     Run NAV update
// @Description Store the previous trading day's NAV for held schemes, or for the given scheme codes
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string           true  "Pipeline API key"
// @Param       request   body   NAVUpdateRequest false "Optional scheme codes"
// @Success     200 {object} services.NAVUpdateOutcome "NAV update summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     409 {object} ErrorResponse "NAV update already running"
// @Router      /pipeline/nav-update [post]
func (h *PipelineHandler) RunNAVUpdate(c *gin.Context) {
	var req NAVUpdateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	outcome, err := h.navUpdateService.RunNAVUpdate(c.Request.Context(), req.SchemeCodes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// RefreshSchemeMaster handles forcing a scheme master sync.
// @Summary     Refresh scheme master
// @Description Download the AMFI scheme list and upsert it
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} map[string]int "Schemes upserted"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     502 {object} ErrorResponse "Provider unavailable"
// @Router      /pipeline/schemes/refresh [post]
func (h *PipelineHandler) RefreshSchemeMaster(c *gin.Context) {
	count, err := h.schemeService.RefreshSchemeMaster(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"schemes_upserted": count})
}

// RecordSnapshots handles recording portfolio snapshots for every user.
// @Summary     Record portfolio snapshots
// @Description Value every portfolio and store a snapshot for the date (default: previous trading day)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string                 true  "Pipeline API key"
// @Param       request   body   RecordSnapshotsRequest false "Snapshot date (YYYY-MM-DD)"
// @Success     200 {object} map[string]int "Snapshots recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/snapshots [post]
func (h *PipelineHandler) RecordSnapshots(c *gin.Context) {
	var req RecordSnapshotsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	date := h.calendar.PreviousTradingDay(time.Now())
	if req.Date != "" {
		parsed, err := calendar.ParseDate(req.Date)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	count, err := h.snapshotService.RecordSnapshots(c.Request.Context(), date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots_recorded": count, "snapshot_date": calendar.FormatDate(date)})
}
