package pipeline

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/venue"
)

// Handler exposes the pipeline over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates the launch API handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the launch endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/launches", h.CreateLaunch)
	r.GET("/launches", h.ListLaunches)
	r.GET("/launches/:id", h.GetLaunch)
	r.POST("/launches/:id/resume", h.ResumeLaunch)
}

type launchRequest struct {
	Name        string          `json:"name" binding:"required"`
	Symbol      string          `json:"symbol" binding:"required"`
	ImageURI    string          `json:"image_uri"`
	Supply      decimal.Decimal `json:"supply"`
	Decimals    uint8           `json:"decimals"`
	Venue       string          `json:"venue" binding:"required"`
	SeedAmount  decimal.Decimal `json:"seed_amount"`
	SlippagePct float64         `json:"slippage_pct"`
}

// CreateLaunch starts a pipeline run and reports its terminal result,
// including per-step identifiers when the run halts partway.
func (h *Handler) CreateLaunch(c *gin.Context) {
	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, err := venue.ParseKind(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Launch(c.Request.Context(), Request{
		Name:        req.Name,
		Symbol:      req.Symbol,
		ImageURI:    req.ImageURI,
		Supply:      req.Supply,
		Decimals:    req.Decimals,
		VenueKind:   kind,
		SeedAmount:  req.SeedAmount,
		SlippagePct: req.SlippagePct,
	})
	if err != nil {
		status := statusFor(err)
		if result != nil {
			c.JSON(status, gin.H{"error": err.Error(), "result": result})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetLaunch returns a stored run with its step report.
func (h *Handler) GetLaunch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

// ResumeLaunch continues a halted run from its last confirmed step.
func (h *Handler) ResumeLaunch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	result, err := h.service.Resume(c.Request.Context(), id)
	if err != nil {
		status := statusFor(err)
		if result != nil {
			c.JSON(status, gin.H{"error": err.Error(), "result": result})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListLaunches returns stored runs, optionally filtered by status.
func (h *Handler) ListLaunches(c *gin.Context) {
	var status *RunStatus
	if s := c.Query("status"); s != "" {
		rs := RunStatus(s)
		status = &rs
	}

	runs, err := h.service.List(c.Request.Context(), status, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runs)
}

// statusFor maps failure kinds onto HTTP statuses.
func statusFor(err error) int {
	if errors.Is(err, ErrRunNotFound) {
		return http.StatusNotFound
	}
	switch ledger.KindOf(err) {
	case ledger.KindInvalidParameter:
		return http.StatusBadRequest
	case ledger.KindUnreachable:
		return http.StatusGatewayTimeout
	case ledger.KindAmbiguous:
		return http.StatusConflict
	case ledger.KindVenueNotFound, ledger.KindSlippageExceeded, ledger.KindRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
