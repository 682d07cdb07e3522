package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/trackmint/trackmint/internal/affiliate/domain"
	commissiondomain "github.com/trackmint/trackmint/internal/commission/domain"
	conversiondomain "github.com/trackmint/trackmint/internal/conversion/domain"
	payoutdomain "github.com/trackmint/trackmint/internal/payout/domain"
	programdomain "github.com/trackmint/trackmint/internal/program/domain"
	"github.com/trackmint/trackmint/internal/rating"
	referraldomain "github.com/trackmint/trackmint/internal/referral/domain"
	tierdomain "github.com/trackmint/trackmint/internal/tier/domain"
	"github.com/trackmint/trackmint/internal/observability/logger"
	"go.uber.org/zap"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var notFoundErrs = []error{
	tierdomain.ErrTierResolution,
	programdomain.ErrNotFound,
	affiliatedomain.ErrNotFound,
	referraldomain.ErrNotFound,
	conversiondomain.ErrNotFound,
	commissiondomain.ErrNotFound,
	payoutdomain.ErrNotFound,
}

var badRequestErrs = []error{
	errInvalidID,
	tierdomain.ErrInvalidName,
	tierdomain.ErrInvalidLevel,
	tierdomain.ErrInvalidMultiplier,
	programdomain.ErrInvalidName,
	programdomain.ErrInvalidCookieWindow,
	affiliatedomain.ErrInvalidName,
	affiliatedomain.ErrInvalidEmail,
	referraldomain.ErrInvalidRequest,
	conversiondomain.ErrInvalidType,
	conversiondomain.ErrInvalidValue,
	conversiondomain.ErrInvalidSession,
	payoutdomain.ErrInvalidPeriod,
	rating.ErrInvalidCommissionConfig,
}

var conflictErrs = []error{
	tierdomain.ErrDuplicateTier,
	programdomain.ErrDuplicateSlug,
	programdomain.ErrInvalidStateTransition,
	programdomain.ErrConcurrentModification,
	affiliatedomain.ErrDuplicateEmail,
	affiliatedomain.ErrInvalidStateTransition,
	affiliatedomain.ErrConcurrentModification,
	conversiondomain.ErrInvalidStateTransition,
	conversiondomain.ErrConcurrentModification,
	commissiondomain.ErrDuplicateConversion,
	commissiondomain.ErrInvalidStateTransition,
	commissiondomain.ErrConcurrentModification,
	payoutdomain.ErrInvalidStateTransition,
	payoutdomain.ErrConcurrentModification,
}

var unprocessableErrs = []error{
	referraldomain.ErrInactiveLink,
	referraldomain.ErrExpiredLink,
	conversiondomain.ErrInactiveLink,
	payoutdomain.ErrNoEligibleCommissions,
}

func statusFor(err error) int {
	for _, target := range notFoundErrs {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range badRequestErrs {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range conflictErrs {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	for _, target := range unprocessableErrs {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// ErrorHandler translates domain errors collected by handlers into a JSON
// error response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		err := last.Err
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
			c.JSON(status, errorBody{Error: errorDetail{
				Code:    "internal_error",
				Message: "internal error",
			}})
			return
		}

		c.JSON(status, errorBody{Error: errorDetail{
			Code:    rootCode(err),
			Message: err.Error(),
		}})
	}
}

// rootCode walks to the innermost sentinel so wrapped errors keep a stable
// machine-readable code.
func rootCode(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}
