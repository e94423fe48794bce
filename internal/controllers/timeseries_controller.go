package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/charts"
	"github.com/Fuuurma/FinanceHub-sub001/internal/services"
	"github.com/Fuuurma/FinanceHub-sub001/internal/timeseries"
)

type TimeSeriesController struct {
	service *services.AnalyticsService
	logger  *logrus.Logger
}

func NewTimeSeriesController(service *services.AnalyticsService, logger *logrus.Logger) *TimeSeriesController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TimeSeriesController{service: service, logger: logger}
}

func (c *TimeSeriesController) RegisterRoutes(r *gin.RouterGroup) {
	ts := r.Group("/timeseries")
	ts.POST("/arima", c.ARIMA)
	ts.POST("/arima/chart", c.ARIMAChart)
	ts.POST("/garch", c.GARCH)
	ts.POST("/kalman", c.Kalman)
	ts.POST("/half-life", c.HalfLife)
	ts.POST("/hurst", c.Hurst)
	ts.POST("/volatility-regimes", c.VolatilityRegimes)
}

// @Summary ARIMA forecast
// @Description Fit an AR model by Levinson-Durbin recursion and forecast with confidence bands
// @Tags timeseries
// @Accept json
// @Produce json
// @Param request body ARIMARequest true "Series and model order"
// @Success 200 {object} timeseries.ARIMAResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /timeseries/arima [post]
func (c *TimeSeriesController) ARIMA(ctx *gin.Context) {
	var req ARIMARequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.ARIMA(ctx.Request.Context(), req.Data, req.order(), req.steps(), req.confidence())
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary ARIMA forecast chart
// @Description Render the series and its ARIMA forecast as a PNG line chart
// @Tags timeseries
// @Accept json
// @Produce png
// @Param request body ARIMARequest true "Series and model order"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /timeseries/arima/chart [post]
func (c *TimeSeriesController) ARIMAChart(ctx *gin.Context) {
	var req ARIMARequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.ARIMA(ctx.Request.Context(), req.Data, req.order(), req.steps(), req.confidence())
	if err != nil {
		respond(ctx, c.logger, nil, err, orEmpty(out))
		return
	}

	png, err := charts.RenderForecast(req.Data, out)
	if err != nil {
		respond(ctx, c.logger, nil, err, nil)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

// @Summary GARCH(1,1) volatility forecast
// @Tags timeseries
// @Accept json
// @Produce json
// @Param request body GARCHRequest true "Returns and optional parameters"
// @Success 200 {object} timeseries.GARCHResult
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /timeseries/garch [post]
func (c *TimeSeriesController) GARCH(ctx *gin.Context) {
	var req GARCHRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	steps := req.Steps
	if steps == 0 {
		steps = 10
	}
	params := timeseries.GARCHParams{Omega: req.Omega, Alpha: req.Alpha, Beta: req.Beta}

	out, err := c.service.GARCH(ctx.Request.Context(), req.Returns, params, steps)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Kalman filter
// @Tags timeseries
// @Accept json
// @Produce json
// @Param request body KalmanRequest true "Observations and noise settings"
// @Success 200 {object} timeseries.KalmanResult
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /timeseries/kalman [post]
func (c *TimeSeriesController) Kalman(ctx *gin.Context) {
	var req KalmanRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.Kalman(ctx.Request.Context(), req.rows(), req.config())
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Mean reversion half-life
// @Tags timeseries
// @Accept json
// @Produce json
// @Param request body HalfLifeRequest true "Price series"
// @Success 200 {object} timeseries.HalfLifeResult
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /timeseries/half-life [post]
func (c *TimeSeriesController) HalfLife(ctx *gin.Context) {
	var req HalfLifeRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.HalfLife(ctx.Request.Context(), req.Prices, req.Lookback)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Hurst exponent
// @Tags timeseries
// @Accept json
// @Produce json
// @Param request body HurstRequest true "Series and maximum block size"
// @Success 200 {object} timeseries.HurstResult
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /timeseries/hurst [post]
func (c *TimeSeriesController) Hurst(ctx *gin.Context) {
	var req HurstRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.Hurst(ctx.Request.Context(), req.Data, req.MaxScale)
	respond(ctx, c.logger, out, err, orEmpty(out))
}

// @Summary Volatility regimes
// @Description Label each return low, normal or high by its annualized magnitude
// @Tags timeseries
// @Accept json
// @Produce json
// @Param request body VolatilityRegimesRequest true "Returns and regime thresholds"
// @Success 200 {object} timeseries.VolatilityRegimeResult
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /timeseries/volatility-regimes [post]
func (c *TimeSeriesController) VolatilityRegimes(ctx *gin.Context) {
	var req VolatilityRegimesRequest
	if !bindJSON(ctx, &req, false) {
		return
	}

	out, err := c.service.VolatilityRegimes(ctx.Request.Context(), req.Returns, req.thresholds())
	respond(ctx, c.logger, out, err, orEmpty(out))
}

func orEmpty[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}
