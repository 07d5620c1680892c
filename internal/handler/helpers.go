package handler

import (
	"errors"
	"net/http"

	"confcheckin/internal/apierror"
	"confcheckin/internal/middleware"
	"confcheckin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	return bindAndValidateStatus(c, req, http.StatusUnprocessableEntity)
}

// bindAndValidateStatus is bindAndValidate with a caller-chosen status for
// validation failures. The check-in endpoints answer 400 for a missing field.
func bindAndValidateStatus(c *gin.Context, req interface{}, validationStatus int) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON body"))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New("invalid request"))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(validationStatus, apierror.NewValidation(fields))
		return false
	}
	return true
}

// writeServiceError maps a service failure to its HTTP status. Internal causes
// are logged and never rendered.
func writeServiceError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Reason: service.ReasonInternal, Message: "internal server error", Cause: err}
	}

	status := http.StatusInternalServerError
	switch se.Reason {
	case service.ReasonNotFound:
		status = http.StatusNotFound
	case service.ReasonAlreadyCheckedIn, service.ReasonNotCheckedIn:
		status = http.StatusBadRequest
	case service.ReasonForbiddenRole:
		status = http.StatusForbidden
	case service.ReasonDuplicateEmail:
		status = http.StatusConflict
	case service.ReasonUnauthorized:
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().
			Str("route", c.FullPath()).
			Err(err).
			Msg("service error")
		c.JSON(status, apierror.WithCode(string(service.ReasonInternal), "internal server error"))
		return
	}
	c.JSON(status, apierror.WithCode(string(se.Reason), se.Message))
}

// currentUserID reads the authenticated subject from the JWT claims.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	return id, err == nil
}
