package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"LiqPulse/internal/domain/models"
	"LiqPulse/internal/usecase"
	"LiqPulse/pkg/cache"
	xhttp "LiqPulse/pkg/http"
	xlogger "LiqPulse/pkg/logger"
)

const candlesCacheTTL = 5 * time.Second

// Handler implements the read-only REST surface over the engine's
// point-in-time views, plus the live WebSocket feed.
type Handler struct {
	logger      *xlogger.Logger
	engine      *usecase.Engine
	cache       cache.Service
	hub         *Hub
	instruments []string
	connected   func() bool
}

// NewHandler creates the API handler. connected reports upstream feed health.
func NewHandler(logger *xlogger.Logger, engine *usecase.Engine, cacheSvc cache.Service, hub *Hub, instruments []string, connected func() bool) *Handler {
	return &Handler{logger: logger, engine: engine, cache: cacheSvc, hub: hub, instruments: instruments, connected: connected}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/candles", h.Candles)
	g.GET("/trades", h.Trades)
	g.GET("/signals", h.Signals)
	g.GET("/config", h.Config)
	e.GET("/health", h.Health)
	e.GET("/ws", h.hub.Serve)
}

func (h *Handler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, hasRange := xhttp.ParseTime(req.From)
	to := xhttp.ParseTimeDefault(req.To, time.Now())
	if hasRange {
		from, to = xhttp.AlignRange(from, to, "5m")
	}

	ctx := c.Request().Context()
	key := cache.GenerateKeyWithParams("candles", req.Instrument, req.Limit, req.From, req.To)

	var bars []models.Bar
	if err := h.cache.Get(ctx, key, &bars); err == nil {
		return xhttp.SuccessResponse(c, bars)
	}

	bars = h.engine.RecentBars(req.Instrument, req.Limit)
	if hasRange {
		bars = barsInRange(bars, from.Unix(), to.Unix())
	}
	if err := h.cache.Set(ctx, key, bars, candlesCacheTTL); err != nil {
		h.logger.Warn("candles cache set failed", xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, bars)
}

func barsInRange(bars []models.Bar, from, to int64) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp >= from && b.Timestamp <= to {
			out = append(out, b)
		}
	}
	return out
}

func (h *Handler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.engine.Trades(req.Status, req.Limit))
}

func (h *Handler) Signals(c echo.Context) error {
	res := models.SignalsResponse{SignalStates: h.engine.SignalStates()}
	if snap, ok := h.engine.LatestSnapshot(); ok {
		res.Features = &snap
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Config(c echo.Context) error {
	cfg := h.engine.Config()
	return xhttp.SuccessResponse(c, models.ConfigResponse{
		PrimaryInstrument:  cfg.PrimaryInstrument,
		MomentumInstrument: cfg.MomentumInstrument,
		Instruments:        h.instruments,
		BarSeconds:         int64(cfg.BarInterval / time.Second),
		WindowBars:         cfg.WindowBars,
		StartedAt:          h.engine.StartedAt(),
	})
}

func (h *Handler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":       "ok",
		"feed_up":      h.connected(),
		"started_at":   h.engine.StartedAt(),
		"open_trades":  len(h.engine.Trades("open", 0)),
		"uptime_hours": time.Since(time.Unix(h.engine.StartedAt(), 0)).Hours(),
	})
}
