package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/services"
)

type PerformanceController struct {
	service *services.AnalyticsService
	logger  *logrus.Logger
}

func NewPerformanceController(service *services.AnalyticsService, logger *logrus.Logger) *PerformanceController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PerformanceController{service: service, logger: logger}
}

func (c *PerformanceController) RegisterRoutes(r *gin.RouterGroup) {
	perf := r.Group("/performance")
	perf.POST("/returns", c.Returns)
	perf.POST("/risk-adjusted", c.RiskAdjusted)
	perf.POST("/factors", c.Factors)
}

// @Summary Return analysis
// @Tags performance
// @Accept json
// @Produce json
// @Param request body ReturnsRequest true "Price series and optional benchmark"
// @Success 200 {object} calculator.PerformanceReport
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /performance/returns [post]
func (c *PerformanceController) Returns(ctx *gin.Context) {
	var req ReturnsRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.AnalyzeReturns(ctx.Request.Context(), req.Prices, req.Symbol, req.Benchmark, req.Period)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Risk-adjusted performance
// @Tags performance
// @Accept json
// @Produce json
// @Param request body RiskAdjustedRequest true "Return series and optional benchmark"
// @Success 200 {object} calculator.RiskAdjustedReport
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /performance/risk-adjusted [post]
func (c *PerformanceController) RiskAdjusted(ctx *gin.Context) {
	var req RiskAdjustedRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.AnalyzeRiskAdjusted(ctx.Request.Context(), req.Returns, req.Benchmark, req.RiskFreeRate)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Factor exposures
// @Description OLS regression of returns on named factor series
// @Tags performance
// @Accept json
// @Produce json
// @Param request body FactorsRequest true "Returns and factor series"
// @Success 200 {object} calculator.FactorReport
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /performance/factors [post]
func (c *PerformanceController) Factors(ctx *gin.Context) {
	var req FactorsRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.AnalyzeFactors(ctx.Request.Context(), req.Returns, req.Factors)
	respond(ctx, c.logger, out, err, orEmpty(out))
}
