package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/services"
)

type RiskController struct {
	service *services.AnalyticsService
	logger  *logrus.Logger
}

func NewRiskController(service *services.AnalyticsService, logger *logrus.Logger) *RiskController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RiskController{service: service, logger: logger}
}

func (c *RiskController) RegisterRoutes(r *gin.RouterGroup) {
	risk := r.Group("/risk")
	risk.POST("/var", c.CalculateVaR)
	risk.GET("/var/methods", c.VaRMethods)
	risk.POST("/stress/historical", c.HistoricalStress)
	risk.POST("/stress/custom", c.CustomStress)
	risk.GET("/scenarios", c.Scenarios)

	r.GET("/portfolios/:id/var/history", c.VaRHistory)
}

// @Summary Calculate value at risk
// @Description Parametric, historical or Monte Carlo VaR over inline positions or the latest stored snapshot
// @Tags risk
// @Accept json
// @Produce json
// @Param request body VaRRequest true "Portfolio and VaR settings"
// @Success 200 {object} calculator.VaRReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /risk/var [post]
func (c *RiskController) CalculateVaR(ctx *gin.Context) {
	var req VaRRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.CalculateVaR(ctx.Request.Context(), req.PortfolioID, req.Positions, calculator.VaRRequest{
		Method:          req.Method,
		ConfidenceLevel: req.ConfidenceLevel,
		TimeHorizon:     req.TimeHorizon,
		LookbackDays:    req.LookbackDays,
	})
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary List VaR methods
// @Tags risk
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /risk/var/methods [get]
func (c *RiskController) VaRMethods(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"methods": []gin.H{
			{"key": calculator.MethodParametric, "name": "Parametric (variance-covariance)"},
			{"key": calculator.MethodHistorical, "name": "Historical simulation"},
			{"key": calculator.MethodMonteCarlo, "name": "Monte Carlo simulation"},
		},
		"backend": c.service.Backend().Name(),
	})
}

// @Summary VaR report history
// @Description Stored VaR reports of a portfolio, newest first
// @Tags risk
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param limit query int false "Maximum reports" default(30)
// @Success 200 {array} calculator.VaRReport
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolios/{id}/var/history [get]
func (c *RiskController) VaRHistory(ctx *gin.Context) {
	limit := queryInt(ctx, "limit", 30)
	out, err := c.service.VaRHistory(ctx.Request.Context(), ctx.Param("id"), limit)
	respond(ctx, c.logger, out, err, []calculator.VaRReport{})
}

// @Summary Historical stress test
// @Tags risk
// @Accept json
// @Produce json
// @Param request body HistoricalStressRequest true "Portfolio and scenario key"
// @Success 200 {object} calculator.StressTestReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /risk/stress/historical [post]
func (c *RiskController) HistoricalStress(ctx *gin.Context) {
	var req HistoricalStressRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.RunHistoricalStress(ctx.Request.Context(), req.PortfolioID, req.Positions, req.Scenario)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Custom stress test
// @Tags risk
// @Accept json
// @Produce json
// @Param request body CustomStressRequest true "Portfolio and shocks"
// @Success 200 {object} calculator.StressTestReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /risk/stress/custom [post]
func (c *RiskController) CustomStress(ctx *gin.Context) {
	var req CustomStressRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.RunCustomStress(ctx.Request.Context(), req.PortfolioID, req.Positions, req.marketShock(), req.SectorShocks)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary List stress scenarios
// @Tags risk
// @Produce json
// @Success 200 {array} calculator.ScenarioSummary
// @Router /risk/scenarios [get]
func (c *RiskController) Scenarios(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.service.Scenarios())
}

func queryInt(ctx *gin.Context, key string, defaultValue int) int {
	if valueStr := ctx.Query(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
