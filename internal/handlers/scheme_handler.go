package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/pagination"
	"wealthlens/internal/services"
)

var schemeCodePattern = regexp.MustCompile(`^[0-9]{1,10}$`)

// SchemeHandler serves the scheme master and NAV reference data.
type SchemeHandler struct {
	schemeService   services.SchemeServicer
	navService      services.NAVServicer
	backfillService services.BackfillServicer
}

// NewSchemeHandler creates a new SchemeHandler.
func NewSchemeHandler(
	schemeService services.SchemeServicer,
	navService services.NAVServicer,
	backfillService services.BackfillServicer,
) *SchemeHandler {
	return &SchemeHandler{schemeService: schemeService, navService: navService, backfillService: backfillService}
}

// SearchSchemes handles searching the scheme master by name.
// @Summary     Search schemes
// @Description Search mutual fund schemes by name words
// @Tags        schemes
// @Produce     json
// @Security    BearerAuth
// @Param       q         query string false "Name words to match"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.SchemeMaster] "Paginated schemes"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /schemes [get]
func (h *SchemeHandler) SearchSchemes(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.schemeService.SearchSchemes(c.Query("q"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetScheme handles retrieving one scheme.
// @Summary     Get scheme
// @Description Get a scheme by its AMFI scheme code
// @Tags        schemes
// @Produce     json
// @Security    BearerAuth
// @Param       code path string true "Scheme code"
// @Success     200 {object} map[string]models.SchemeMaster "Scheme"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Scheme not found"
// @Router      /schemes/{code} [get]
func (h *SchemeHandler) GetScheme(c *gin.Context) {
	code, err := schemeCodeParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scheme, err := h.schemeService.GetScheme(code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scheme": scheme})
}

// GetLatestNAV handles retrieving the most recent stored NAV of a scheme.
// @Summary     Get latest NAV
// @Description Get the most recent NAV recorded for a scheme
// @Tags        schemes
// @Produce     json
// @Security    BearerAuth
// @Param       code path string true "Scheme code"
// @Success     200 {object} map[string]models.SchemeNAV "Latest NAV"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "No NAV recorded"
// @Router      /schemes/{code}/nav [get]
func (h *SchemeHandler) GetLatestNAV(c *gin.Context) {
	code, err := schemeCodeParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	nav, err := h.navService.GetLatestNAV(code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"nav": nav})
}

// GetNAVHistory handles retrieving stored NAVs of a scheme.
// @Summary     Get NAV history
// @Description Get NAVs for a scheme within a date range (paginated, newest first)
// @Tags        schemes
// @Produce     json
// @Security    BearerAuth
// @Param       code      path  string true  "Scheme code"
// @Param       from_date query string true  "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string true  "End date (RFC3339 or YYYY-MM-DD)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.SchemeNAV] "Paginated NAVs"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /schemes/{code}/navs [get]
func (h *SchemeHandler) GetNAVHistory(c *gin.Context) {
	code, err := schemeCodeParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.navService.GetNAVHistory(code, from, to, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MatchScheme handles a dry-run match of a fund name against the scheme master.
// @Summary     Match fund name
// @Description Run the scheme matcher for a free-text fund name without saving anything
// @Tags        schemes
// @Produce     json
// @Security    BearerAuth
// @Param       name query string true "Fund name as entered or imported"
// @Success     200 {object} map[string]matching.Result "Match result with ranked candidates"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /schemes/match [get]
func (h *SchemeHandler) MatchScheme(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required"))
		return
	}
	if len(name) > 200 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "name must be at most 200 characters"))
		return
	}

	result, err := h.backfillService.MatchName(c.Request.Context(), name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": result})
}

func schemeCodeParam(c *gin.Context) (string, error) {
	code := c.Param("code")
	if !schemeCodePattern.MatchString(code) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid scheme code")
	}
	return code, nil
}
