package handler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"confcheckin/internal/apierror"
	"confcheckin/internal/dto"
	"confcheckin/internal/infra"
	"confcheckin/internal/metrics"
	"confcheckin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Tokens never change, so cached QR images never go stale; the TTL only
// bounds memory.
const qrCacheTTL = 24 * time.Hour

type AttendeesHandler struct {
	svc       service.RegistryService
	rdb       *redis.Client // nil disables the QR cache
	metrics   *metrics.Metrics
	eventName string
}

func NewAttendeesHandler(svc service.RegistryService, rdb *redis.Client, m *metrics.Metrics, eventName string) *AttendeesHandler {
	return &AttendeesHandler{svc: svc, rdb: rdb, metrics: m, eventName: eventName}
}

// Register godoc
// @Summary Register an attendee or staff member
// @Tags attendees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RegisterAttendeeRequest true "New attendee"
// @Success 201 {object} dto.AttendeeResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/attendees [post]
func (h *AttendeesHandler) Register(c *gin.Context) {
	var req dto.RegisterAttendeeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Search godoc
// @Summary Find attendees by name or email for manual check-in
// @Tags attendees
// @Produce json
// @Security BearerAuth
// @Param search query string false "Substring of name or email"
// @Param limit query int false "Max rows (default 20, max 100)"
// @Success 200 {array} dto.AttendeeResponse
// @Router /v1/attendees [get]
func (h *AttendeesHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	resp, err := h.svc.Search(c.Request.Context(), c.Query("search"), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary Own profile including the QR token
// @Tags me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ProfileResponse
// @Router /v1/me [get]
func (h *AttendeesHandler) Me(c *gin.Context) {
	profile, ok := h.profile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}

// MyQRCode godoc
// @Summary Own QR code as PNG
// @Tags me
// @Produce png
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /v1/me/qr.png [get]
func (h *AttendeesHandler) MyQRCode(c *gin.Context) {
	profile, ok := h.profile(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cacheKey := "qr:png:" + profile.QRToken

	// 1. Try Redis cache
	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			h.metrics.IncrementQRCache("hit")
			c.Data(http.StatusOK, "image/png", cached)
			return
		}
	}
	h.metrics.IncrementQRCache("miss")

	// 2. Cache miss, render
	png, err := infra.QRCodePNG(profile.QRToken)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// 3. Populate cache, best effort, ignore errors
	if h.rdb != nil {
		_ = h.rdb.Set(context.Background(), cacheKey, png, qrCacheTTL).Err()
	}
	c.Data(http.StatusOK, "image/png", png)
}

// MyBadge godoc
// @Summary Own printable badge as PDF
// @Tags me
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /v1/me/badge.pdf [get]
func (h *AttendeesHandler) MyBadge(c *gin.Context) {
	profile, ok := h.profile(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := infra.RenderBadgePDF(&buf, infra.Badge{
		EventName: h.eventName,
		Name:      profile.Name,
		Email:     profile.Email,
		Role:      profile.Role,
		QRToken:   profile.QRToken,
	})
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("attendee_id", profile.ID).Msg("badge render failed")
		c.JSON(http.StatusInternalServerError, apierror.WithCode(string(service.ReasonInternal), "internal server error"))
		return
	}
	c.Header("Content-Disposition", `inline; filename="badge.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *AttendeesHandler) profile(c *gin.Context) (*dto.ProfileResponse, bool) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.New("authentication required"))
		return nil, false
	}
	profile, err := h.svc.Profile(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return nil, false
	}
	return profile, true
}
