package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"labstock/internal/logger"
	"labstock/internal/report"
	"labstock/pkg/domain"
)

type violationBody struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
}

type errorBody struct {
	Code       string           `json:"code"`
	Message    string           `json:"message"`
	Field      string           `json:"field,omitempty"`
	Available  *decimal.Decimal `json:"available,omitempty"`
	Violations []violationBody  `json:"violations,omitempty"`
}

func violations(res domain.Result) []violationBody {
	if len(res.Violations) == 0 {
		return nil
	}
	out := make([]violationBody, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, violationBody{Rule: v.Rule, Severity: string(v.Severity), Message: v.Message, EntityID: v.EntityID})
	}
	return out
}

// replyData writes data with any non-blocking rule findings alongside it.
func replyData(c *gin.Context, status int, data any, res domain.Result) {
	body := gin.H{"data": data}
	if v := violations(res); v != nil {
		body["violations"] = v
	}
	c.JSON(status, body)
}

func replyBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Code: "invalid_request", Message: err.Error()}})
}

// replyErr maps domain and report errors onto status codes.
func replyErr(c *gin.Context, err error) {
	status, body := http.StatusInternalServerError, errorBody{Code: "internal", Message: err.Error()}

	var (
		notFound     domain.ErrNotFound
		insufficient domain.InsufficientStockError
		invalid      domain.InvalidInputError
		lastUser     domain.LastUserError
		blocked      domain.RuleViolationError
	)
	switch {
	case errors.As(err, &notFound):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.As(err, &insufficient):
		available := insufficient.Available
		status, body.Code, body.Available = http.StatusConflict, "insufficient_stock", &available
	case errors.As(err, &invalid):
		status, body.Code, body.Field = http.StatusBadRequest, "invalid_input", invalid.Field
	case errors.As(err, &lastUser):
		status, body.Code = http.StatusConflict, "last_user"
	case errors.As(err, &blocked):
		status, body.Code, body.Violations = http.StatusUnprocessableEntity, "rule_violation", violations(blocked.Result)
	case errors.Is(err, report.ErrJobNotFound):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, report.ErrNotReady):
		status, body.Code = http.StatusConflict, "not_ready"
	case errors.Is(err, report.ErrUnknownFormat):
		status, body.Code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, report.ErrQueueFull):
		status, body.Code = http.StatusServiceUnavailable, "queue_full"
	case errors.Is(err, report.ErrStopped):
		status, body.Code = http.StatusServiceUnavailable, "shutting_down"
	}
	if status == http.StatusInternalServerError {
		logger.Errorf(c.Request.Context(), "request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": body})
}
