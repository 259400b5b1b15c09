package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"CoinSage/internal/domain/models"
	domrepo "CoinSage/internal/domain/repository"
	"CoinSage/internal/repository"
	"CoinSage/internal/service/ratelimit"
	"CoinSage/pkg/cache"
	xhttp "CoinSage/pkg/http"
	xlogger "CoinSage/pkg/logger"
	"CoinSage/pkg/util"
)

const responseCacheTTL = 15 * time.Second

// DashboardHandler serves the read side of the system: collected prices and
// news, derived knowledge items, registered models and their predictions.
type DashboardHandler struct {
	logger   *xlogger.Logger
	market   domrepo.MarketStore
	know     domrepo.KnowledgeStore
	registry domrepo.ModelRegistry
	cache    cache.Service
	limiter  *ratelimit.Limiter
}

func NewDashboardHandler(
	logger *xlogger.Logger,
	market domrepo.MarketStore,
	know domrepo.KnowledgeStore,
	registry domrepo.ModelRegistry,
	cacheSvc cache.Service,
	limiter *ratelimit.Limiter,
) *DashboardHandler {
	return &DashboardHandler{
		logger:   logger,
		market:   market,
		know:     know,
		registry: registry,
		cache:    cacheSvc,
		limiter:  limiter,
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api", h.rateLimit)
	g.GET("/prices", h.Prices)
	g.GET("/news", h.News)
	g.GET("/knowledge", h.Knowledge)
	g.GET("/models", h.Models)
	g.GET("/predictions", h.Predictions)
}

// rateLimit caps requests per client address with a keyed token bucket.
func (h *DashboardHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}

func (h *DashboardHandler) Health(c echo.Context) error {
	if err := h.market.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, "storage unavailable")
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := cache.Key("api:prices", req.Symbol, req.Limit)
	if h.serveCached(c, key) {
		return nil
	}

	rows, err := h.market.LatestPrices(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.logger.Error("prices query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return h.respondCached(c, key, rows)
}

func (h *DashboardHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := cache.Key("api:news", req.Currency, req.Limit)
	if h.serveCached(c, key) {
		return nil
	}

	rows, err := h.market.LatestNews(c.Request().Context(), req.Currency, req.Limit)
	if err != nil {
		h.logger.Error("news query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return h.respondCached(c, key, rows)
}

func (h *DashboardHandler) Knowledge(c echo.Context) error {
	req := &models.KnowledgeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	filter := domrepo.KnowledgeFilter{
		Symbol:   req.Symbol,
		DataType: models.DataType(req.DataType),
		Limit:    req.Limit,
	}
	if req.From != "" {
		from, ok := util.ParseTime(req.From)
		if !ok {
			return xhttp.BadRequestResponse(c, "from: invalid time")
		}
		filter.From = from
	}
	if req.To != "" {
		to, ok := util.ParseTime(req.To)
		if !ok {
			return xhttp.BadRequestResponse(c, "to: invalid time")
		}
		filter.To = to
	}

	items, err := h.know.Query(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("knowledge query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *DashboardHandler) Models(c echo.Context) error {
	req := &models.ModelsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.registry.ListModels(c.Request().Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveModel) {
			return xhttp.NotFoundResponse(c, "no models for symbol")
		}
		h.logger.Error("models query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) Predictions(c echo.Context) error {
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.registry.LatestPredictions(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.logger.Error("predictions query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// serveCached writes a previously cached JSON body for key, if one exists.
func (h *DashboardHandler) serveCached(c echo.Context, key string) bool {
	if h.cache == nil {
		return false
	}
	var body string
	if err := h.cache.Get(c.Request().Context(), key, &body); err != nil {
		return false
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c.Response().WriteHeader(http.StatusOK)
	_, _ = c.Response().Write([]byte(body))
	return true
}

// respondCached sends a success envelope and caches its serialized form.
func (h *DashboardHandler) respondCached(c echo.Context, key string, data interface{}) error {
	if h.cache != nil {
		envelope := xhttp.APIResponse{
			Status:  http.StatusOK,
			Message: http.StatusText(http.StatusOK),
			Data:    data,
		}
		if body, err := json.Marshal(envelope); err == nil {
			_ = h.cache.Set(c.Request().Context(), key, string(body), responseCacheTTL)
		}
	}
	return xhttp.SuccessResponse(c, data)
}
