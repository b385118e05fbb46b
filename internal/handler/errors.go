package handler

import (
	"errors"
	"net/http"

	"github.com/Sayyed-Ali/MediSys/internal/logger"
	"github.com/Sayyed-Ali/MediSys/internal/middleware"
	"github.com/Sayyed-Ali/MediSys/internal/service"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"
	"github.com/Sayyed-Ali/MediSys/pkg/response"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[service.ErrorKind]int{
	service.KindInvalid:  http.StatusBadRequest,
	service.KindNotFound: http.StatusNotFound,
	service.KindConflict: http.StatusConflict,
}

// respondError maps service and upstream failures onto the response envelope.
// Anything unrecognised is logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		status, ok := kindStatus[se.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		c.JSON(status, response.ErrorWithDetails(status, se.Message, se.Details))
		return
	}

	var ue *upstream.Error
	if errors.As(err, &ue) {
		log := logger.WithComponent("handler")
		log.Warn().
			Err(err).
			Str("service", ue.Service).
			Int("upstream_status", ue.StatusCode).
			Str("request_id", c.GetString(middleware.CtxRequestID)).
			Msg("upstream call failed")
		c.JSON(http.StatusBadGateway, response.ErrorWithDetails(http.StatusBadGateway, ue.Error(), ue.Body))
		return
	}

	log := logger.WithComponent("handler")
	log.Error().
		Err(err).
		Str("path", c.FullPath()).
		Str("request_id", c.GetString(middleware.CtxRequestID)).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Server Error"))
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
