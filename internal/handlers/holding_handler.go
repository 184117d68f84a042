package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
	"wealthlens/internal/services"
)

// HoldingHandler handles holding-related requests.
type HoldingHandler struct {
	assetService services.AssetServicer
	auditService services.AuditServicer
}

// NewHoldingHandler creates a new HoldingHandler.
func NewHoldingHandler(assetService services.AssetServicer, auditService services.AuditServicer) *HoldingHandler {
	return &HoldingHandler{assetService: assetService, auditService: auditService}
}

// AddHoldingRequest represents the request payload for adding a holding.
// Mutual funds are usually added by name only; the ISIN backfill resolves them.
type AddHoldingRequest struct {
	Name          string           `json:"name" binding:"required,min=1,max=200"`
	AssetType     models.AssetType `json:"asset_type" binding:"required,asset_type"`
	Symbol        *string          `json:"symbol" binding:"omitempty,max=20"`
	ISIN          *string          `json:"isin" binding:"omitempty,isin"`
	Quantity      float64          `json:"quantity" binding:"gte=0"`
	InvestedValue int64            `json:"invested_value" binding:"gte=0"`
	CurrentValue  *int64           `json:"current_value" binding:"omitempty,gte=0"`
	Notes         string           `json:"notes" binding:"max=500"`
}

// UpdateHoldingRequest represents the request payload for updating a holding.
type UpdateHoldingRequest struct {
	Quantity      *float64 `json:"quantity" binding:"omitempty,gte=0"`
	InvestedValue *int64   `json:"invested_value" binding:"omitempty,gte=0"`
	CurrentValue  *int64   `json:"current_value" binding:"omitempty,gte=0"`
	Notes         *string  `json:"notes" binding:"omitempty,max=500"`
}

// AddHolding handles adding a holding.
// @Summary     Add holding
// @Description Record a holding; the asset is matched by name and type or created
// @Tags        holdings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AddHoldingRequest true "Holding details"
// @Success     201 {object} map[string]models.Holding "Holding created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings [post]
func (h *HoldingHandler) AddHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	holding, err := h.assetService.AddHolding(userID, services.HoldingInput{
		Name:          req.Name,
		AssetType:     req.AssetType,
		Symbol:        req.Symbol,
		ISIN:          req.ISIN,
		Quantity:      req.Quantity,
		InvestedValue: req.InvestedValue,
		CurrentValue:  req.CurrentValue,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionCreateHolding, services.AuditResourceHolding, holding.ID, c.ClientIP(),
		map[string]interface{}{"asset_id": holding.AssetID, "asset_type": string(req.AssetType), "quantity": req.Quantity})

	c.JSON(http.StatusCreated, gin.H{"holding": holding})
}

// GetHoldings handles listing the user's holdings.
// @Summary     List holdings
// @Description Get a paginated list of the user's holdings, optionally filtered by asset type
// @Tags        holdings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       asset_type query string false "Asset type filter"
// @Param       page       query int    false "Page number (default 1)"
// @Param       page_size  query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Holding] "Paginated holdings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /holdings [get]
func (h *HoldingHandler) GetHoldings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var assetType *models.AssetType
	if v := c.Query("asset_type"); v != "" {
		t := models.AssetType(v)
		if !isKnownAssetType(t) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid asset_type"))
			return
		}
		assetType = &t
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.assetService.GetUserHoldings(userID, assetType, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHolding handles retrieving one holding.
// @Summary     Get holding
// @Description Get a holding with its asset
// @Tags        holdings
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Holding ID"
// @Success     200 {object} map[string]models.Holding "Holding"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Holding not found"
// @Router      /holdings/{id} [get]
func (h *HoldingHandler) GetHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	holding, err := h.assetService.GetHoldingByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"holding": holding})
}

// UpdateHolding handles updating a holding's quantity or values.
// @Summary     Update holding
// @Description Update quantity, invested value, manual current value or notes
// @Tags        holdings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Holding ID"
// @Param       request body UpdateHoldingRequest true "Fields to update"
// @Success     200 {object} map[string]models.Holding "Holding updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Holding not found"
// @Router      /holdings/{id} [put]
func (h *HoldingHandler) UpdateHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	holding, err := h.assetService.UpdateHolding(userID, id, services.HoldingUpdate{
		Quantity:      req.Quantity,
		InvestedValue: req.InvestedValue,
		CurrentValue:  req.CurrentValue,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionUpdateHolding, services.AuditResourceHolding, holding.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"holding": holding})
}

// DeleteHolding handles removing a holding. The asset itself is kept.
// @Summary     Delete holding
// @Description Remove a holding from the user's portfolio
// @Tags        holdings
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Holding ID"
// @Success     200 {object} MessageResponse "Holding deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Holding not found"
// @Router      /holdings/{id} [delete]
func (h *HoldingHandler) DeleteHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.assetService.DeleteHolding(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionDeleteHolding, services.AuditResourceHolding, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Holding deleted successfully"})
}

func isKnownAssetType(t models.AssetType) bool {
	for _, known := range models.AssetTypes {
		if t == known {
			return true
		}
	}
	return false
}
