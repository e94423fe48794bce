package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/services"
)

type RebalancingController struct {
	service *services.AnalyticsService
	logger  *logrus.Logger
}

func NewRebalancingController(service *services.AnalyticsService, logger *logrus.Logger) *RebalancingController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RebalancingController{service: service, logger: logger}
}

func (c *RebalancingController) RegisterRoutes(r *gin.RouterGroup) {
	p := r.Group("/portfolios/:id")
	p.PUT("/targets", c.SetTargets)
	p.GET("/targets", c.GetTargets)
	p.POST("/snapshots", c.SaveSnapshot)
	p.GET("/snapshots", c.ListSnapshots)
	p.POST("/allocation", c.Allocation)
	p.POST("/drift", c.Drift)
	p.POST("/suggestions", c.Suggestions)
	p.POST("/what-if", c.WhatIf)
	p.POST("/tax-lots", c.TaxLots)
	p.POST("/harvesting", c.Harvesting)
	p.POST("/sessions", c.CreateSession)
	p.GET("/sessions", c.ListSessions)
	p.POST("/analytics", c.FullAnalytics)
	p.POST("/optimize", c.Optimize)
	p.POST("/efficient-frontier", c.EfficientFrontier)

	r.POST("/sessions/:sessionId/execute", c.ExecuteSession)
}

type DriftResponse struct {
	Drifts []analytics.Drift      `json:"drifts"`
	Status analytics.DriftStatus `json:"status"`
}

// @Summary Set allocation targets
// @Description Replace the target allocation of a portfolio. Percentages are 0-100 and may not exceed 100 in total.
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body TargetsRequest true "Target allocations"
// @Success 200 {object} models.AllocationTargets
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/targets [put]
func (c *RebalancingController) SetTargets(ctx *gin.Context) {
	var req TargetsRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.SetTargets(ctx.Request.Context(), ctx.Param("id"), req.Allocations)
	respond(ctx, c.logger, out, err, nil)
}

// @Summary Get allocation targets
// @Tags rebalancing
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {object} models.AllocationTargets
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/targets [get]
func (c *RebalancingController) GetTargets(ctx *gin.Context) {
	out, err := c.service.GetTargets(ctx.Request.Context(), ctx.Param("id"))
	respond(ctx, c.logger, out, err, nil)
}

// @Summary Store a holdings snapshot
// @Description Requests that omit positions run against the newest snapshot
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body SnapshotRequest true "Holdings"
// @Success 201 {object} models.PortfolioSnapshot
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/snapshots [post]
func (c *RebalancingController) SaveSnapshot(ctx *gin.Context) {
	var req SnapshotRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	snapshot := &models.PortfolioSnapshot{
		PortfolioID:   ctx.Param("id"),
		PortfolioName: req.PortfolioName,
		Positions:     req.Positions,
		Timestamp:     req.Timestamp,
	}
	if err := c.service.SaveSnapshot(ctx.Request.Context(), snapshot); err != nil {
		respond(ctx, c.logger, nil, err, nil)
		return
	}
	ctx.JSON(http.StatusCreated, snapshot)
}

// @Summary List holdings snapshots
// @Tags rebalancing
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.PortfolioSnapshot
// @Security BearerAuth
// @Router /portfolios/{id}/snapshots [get]
func (c *RebalancingController) ListSnapshots(ctx *gin.Context) {
	out, err := c.service.Snapshots(ctx.Request.Context(), ctx.Param("id"), queryInt(ctx, "limit", 20), queryInt(ctx, "offset", 0))
	respond(ctx, c.logger, out, err, []models.PortfolioSnapshot{})
}

// @Summary Current allocation by asset class
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body HoldingsRequest false "Inline positions"
// @Success 200 {object} map[string]analytics.AllocationEntry
// @Security BearerAuth
// @Router /portfolios/{id}/allocation [post]
func (c *RebalancingController) Allocation(ctx *gin.Context) {
	var req HoldingsRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.CurrentAllocation(ctx.Request.Context(), ctx.Param("id"), req.Positions)
	respond(ctx, c.logger, out, err, map[string]analytics.AllocationEntry{})
}

// @Summary Allocation drift
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body HoldingsRequest false "Inline positions and targets"
// @Success 200 {object} DriftResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/drift [post]
func (c *RebalancingController) Drift(ctx *gin.Context) {
	var req HoldingsRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	drifts, status, err := c.service.Drift(ctx.Request.Context(), ctx.Param("id"), req.Positions, req.Allocations)
	respond(ctx, c.logger, DriftResponse{Drifts: drifts, Status: status}, err, DriftResponse{Drifts: []analytics.Drift{}})
}

// @Summary Rebalancing suggestions
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body SuggestionsRequest false "Inline positions, targets and options"
// @Success 200 {array} analytics.Suggestion
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/suggestions [post]
func (c *RebalancingController) Suggestions(ctx *gin.Context) {
	var req SuggestionsRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.Suggestions(ctx.Request.Context(), ctx.Param("id"), req.Positions, req.Allocations, req.options())
	respond(ctx, c.logger, out, err, []analytics.Suggestion{})
}

// @Summary What-if allocation
// @Description Trades needed to move the holdings to a proposed allocation summing to 100
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body WhatIfRequest true "Proposed allocation"
// @Success 200 {object} analytics.WhatIfResult
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/what-if [post]
func (c *RebalancingController) WhatIf(ctx *gin.Context) {
	var req WhatIfRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.WhatIf(ctx.Request.Context(), ctx.Param("id"), req.Positions, req.Allocations)
	respond(ctx, c.logger, out, err, analytics.WhatIfResult{})
}

// @Summary Tax lots
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body HoldingsRequest false "Inline positions"
// @Success 200 {array} analytics.TaxLot
// @Security BearerAuth
// @Router /portfolios/{id}/tax-lots [post]
func (c *RebalancingController) TaxLots(ctx *gin.Context) {
	var req HoldingsRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.TaxLots(ctx.Request.Context(), ctx.Param("id"), req.Positions)
	respond(ctx, c.logger, out, err, []analytics.TaxLot{})
}

// @Summary Tax-loss harvesting opportunities
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body HoldingsRequest false "Inline positions"
// @Success 200 {array} analytics.HarvestingOpportunity
// @Security BearerAuth
// @Router /portfolios/{id}/harvesting [post]
func (c *RebalancingController) Harvesting(ctx *gin.Context) {
	var req HoldingsRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.HarvestingOpportunities(ctx.Request.Context(), ctx.Param("id"), req.Positions)
	respond(ctx, c.logger, out, err, []analytics.HarvestingOpportunity{})
}

// @Summary Create a rebalancing session
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body SuggestionsRequest false "Inline positions, targets and options"
// @Success 201 {object} analytics.RebalancingSession
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/sessions [post]
func (c *RebalancingController) CreateSession(ctx *gin.Context) {
	var req SuggestionsRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.CreateSession(ctx.Request.Context(), ctx.Param("id"), req.Positions, req.Allocations, req.options())
	if err != nil {
		respond(ctx, c.logger, nil, err, nil)
		return
	}
	ctx.JSON(http.StatusCreated, out)
}

// @Summary List rebalancing sessions
// @Tags rebalancing
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param limit query int false "Maximum sessions" default(20)
// @Success 200 {array} analytics.RebalancingSession
// @Security BearerAuth
// @Router /portfolios/{id}/sessions [get]
func (c *RebalancingController) ListSessions(ctx *gin.Context) {
	out, err := c.service.Sessions(ctx.Request.Context(), ctx.Param("id"), queryInt(ctx, "limit", 20))
	respond(ctx, c.logger, out, err, []analytics.RebalancingSession{})
}

// @Summary Execute a rebalancing session
// @Tags rebalancing
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} analytics.ExecutionResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /sessions/{sessionId}/execute [post]
func (c *RebalancingController) ExecuteSession(ctx *gin.Context) {
	out, err := c.service.ExecuteSession(ctx.Request.Context(), ctx.Param("sessionId"))
	respond(ctx, c.logger, out, err, nil)
}

// @Summary Full portfolio analytics
// @Description Allocation, concentration, beta, risk metrics, correlation and a parametric VaR
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body HoldingsRequest false "Inline positions"
// @Success 200 {object} services.FullAnalyticsReport
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/analytics [post]
func (c *RebalancingController) FullAnalytics(ctx *gin.Context) {
	var req HoldingsRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.FullAnalytics(ctx.Request.Context(), ctx.Param("id"), req.Positions)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Optimize portfolio weights
// @Description Target weights for a strategy estimated from the holdings' price histories, with the trades that reach them
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body OptimizeRequest false "Strategy, constraints and inline positions"
// @Success 200 {object} analytics.OptimizationResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/optimize [post]
func (c *RebalancingController) Optimize(ctx *gin.Context) {
	var req OptimizeRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.Optimize(ctx.Request.Context(), ctx.Param("id"), req.Positions, req.strategy(), req.constraints())
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Efficient frontier
// @Tags rebalancing
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body OptimizeRequest false "Points, constraints and inline positions"
// @Success 200 {array} analytics.EfficientPoint
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/efficient-frontier [post]
func (c *RebalancingController) EfficientFrontier(ctx *gin.Context) {
	var req OptimizeRequest
	if !bindJSON(ctx, &req, true) {
		return
	}

	out, err := c.service.EfficientFrontier(ctx.Request.Context(), ctx.Param("id"), req.Positions, req.Points, req.constraints())
	respond(ctx, c.logger, out, err, []analytics.EfficientPoint{})
}

func (r SuggestionsRequest) options() analytics.SuggestionOptions {
	return analytics.SuggestionOptions{MaxTrades: r.MaxTrades, PreferTaxEfficient: r.PreferTaxEfficient}
}
