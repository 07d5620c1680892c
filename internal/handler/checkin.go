package handler

import (
	"net/http"
	"strings"

	"confcheckin/internal/apierror"
	"confcheckin/internal/dto"
	"confcheckin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckInHandler struct{ svc service.CheckInService }

func NewCheckInHandler(svc service.CheckInService) *CheckInHandler {
	return &CheckInHandler{svc: svc}
}

// CheckIn godoc
// @Summary Check in by scanned QR token
// @Description A repeat scan answers 200 with alreadyCheckedIn=true.
// @Tags check-in
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CheckInRequest true "Scanned token"
// @Success 200 {object} dto.CheckInResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/check-in [post]
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if !bindAndValidateStatus(c, &req, http.StatusBadRequest) {
		return
	}
	// A blank token is a missing token, not an unknown one.
	if strings.TrimSpace(req.QRToken) == "" {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{"QRToken": "required"}))
		return
	}
	resp, err := h.svc.CheckInByToken(c.Request.Context(), req.QRToken)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ManualCheckIn godoc
// @Summary Check in by attendee id
// @Tags check-in
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AttendeeIDRequest true "Attendee id"
// @Success 200 {object} dto.CheckInResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/manual-check-in [post]
func (h *CheckInHandler) ManualCheckIn(c *gin.Context) {
	id, ok := bindAttendeeID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CheckInByID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CheckOut godoc
// @Summary Undo a check-in
// @Tags check-in
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AttendeeIDRequest true "Attendee id"
// @Success 200 {object} dto.CheckInResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/check-out [post]
func (h *CheckInHandler) CheckOut(c *gin.Context) {
	id, ok := bindAttendeeID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CheckOutByID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindAttendeeID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.AttendeeIDRequest
	if !bindAndValidateStatus(c, &req, http.StatusBadRequest) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.AttendeeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{"AttendeeID": "uuid"}))
		return uuid.Nil, false
	}
	return id, true
}
