package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"arbwatch/internal/domain/models"
	domrepo "arbwatch/internal/domain/repository"
	"arbwatch/internal/repository"
	"arbwatch/internal/service/ratelimit"
	xhttp "arbwatch/pkg/http"
	xlogger "arbwatch/pkg/logger"
)

// StatusSource provides the latest monitor status.
type StatusSource interface {
	Snapshot() repository.StatusSnapshot
}

// PricesRequest selects one venue; empty returns every tracked venue.
type PricesRequest struct {
	Venue string `query:"venue" validate:"omitempty,max=32"`
}

// PriceView is the JSON view of one venue's latest sample.
type PriceView struct {
	Venue      models.Venue `json:"venue"`
	Price      float64      `json:"price"`
	ObservedAt time.Time    `json:"observed_at"`
	AgeMs      int64        `json:"age_ms"`
}

// StatusEchoHandler serves read-only views of the monitor.
type StatusEchoHandler struct {
	logger *xlogger.Logger
	status StatusSource
	prices domrepo.PriceReader
	limit  *ratelimit.Limiter
	now    func() time.Time
}

// WithRateLimit throttles /api requests per client IP. nil disables throttling.
func (h *StatusEchoHandler) WithRateLimit(l *ratelimit.Limiter) *StatusEchoHandler {
	h.limit = l
	return h
}

func NewStatusEchoHandler(logger *xlogger.Logger, status StatusSource, prices domrepo.PriceReader) *StatusEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &StatusEchoHandler{logger: logger, status: status, prices: prices, now: time.Now}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api", h.throttle)
	g.GET("/status", h.Status)
	g.GET("/prices", h.Prices)
}

func (h *StatusEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StatusEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.status.Snapshot())
}

func (h *StatusEchoHandler) Prices(c echo.Context) error {
	req := &PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := h.now()
	if req.Venue != "" {
		venue := models.Venue(req.Venue)
		if !h.tracked(venue) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown venue %q", req.Venue))
		}
		s, ok := h.prices.Sample(venue)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("venue", "no price received yet"))
		}
		return xhttp.SuccessResponse(c, toView(s, now))
	}

	views := make([]PriceView, 0, 2)
	for _, v := range h.prices.Venues() {
		if s, ok := h.prices.Sample(v); ok {
			views = append(views, toView(s, now))
		}
	}
	return xhttp.SuccessResponse(c, views)
}

func (h *StatusEchoHandler) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limit != nil && !h.limit.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMIT", "", "too many requests", http.StatusTooManyRequests))
		}
		return next(c)
	}
}

func (h *StatusEchoHandler) tracked(venue models.Venue) bool {
	for _, v := range h.prices.Venues() {
		if v == venue {
			return true
		}
	}
	return false
}

func toView(s models.PriceSample, now time.Time) PriceView {
	return PriceView{
		Venue:      s.Venue,
		Price:      s.Price,
		ObservedAt: s.ObservedAt,
		AgeMs:      now.Sub(s.ObservedAt).Milliseconds(),
	}
}
