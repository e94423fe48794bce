package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
	"github.com/Fuuurma/FinanceHub-sub001/internal/services"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// InsufficientDataResponse wraps the empty report returned when the input is
// too short for the requested calculation
type InsufficientDataResponse struct {
	InsufficientData bool        `json:"insufficient_data"`
	Message          string      `json:"message"`
	Result           interface{} `json:"result"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report json field names in validation errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("var_method", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case calculator.MethodParametric, calculator.MethodHistorical, calculator.MethodMonteCarlo:
			return true
		}
		return false
	})

	// accepts fractions and whole percentages
	_ = v.RegisterValidation("confidence", func(fl validator.FieldLevel) bool {
		_, err := numeric.NormalizeConfidence(fl.Field().Float())
		return err == nil
	})

	return v
}

// bindJSON decodes and validates the request body. An empty body is accepted
// when optional is set, so stored state can be used instead.
func bindJSON(ctx *gin.Context, req interface{}, optional bool) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			badRequest(ctx, "Invalid request format", err.Error())
			return false
		}
	}

	if err := validate.Struct(req); err != nil {
		badRequest(ctx, "Validation failed", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func badRequest(ctx *gin.Context, title, message string) {
	abort(ctx, http.StatusBadRequest, title, message)
}

func abort(ctx *gin.Context, status int, title, message string) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{
		Error:     title,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestid.Get(ctx),
	})
}

// respond writes result, or maps err onto an HTTP status. InsufficientData is
// not a failure: the empty report is returned with 200.
func respond(ctx *gin.Context, logger *logrus.Logger, result interface{}, err error, empty interface{}) {
	if err == nil {
		ctx.JSON(http.StatusOK, result)
		return
	}

	switch {
	case numeric.KindOf(err) == numeric.InvalidParameter:
		badRequest(ctx, "Invalid parameter", err.Error())
	case !numeric.IsFatal(err):
		ctx.JSON(http.StatusOK, InsufficientDataResponse{
			InsufficientData: true,
			Message:          err.Error(),
			Result:           empty,
		})
	case services.IsNotFound(err):
		abort(ctx, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, services.ErrNoStorage):
		abort(ctx, http.StatusServiceUnavailable, "Storage unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		abort(ctx, http.StatusGatewayTimeout, "Calculation timed out", err.Error())
	default:
		logger.WithFields(logrus.Fields{
			"component":  "controllers",
			"path":       ctx.FullPath(),
			"request_id": requestid.Get(ctx),
		}).WithError(err).Error("Request failed")
		abort(ctx, http.StatusInternalServerError, "Internal error", "the calculation failed")
	}
}
