package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"eventdesk/internal/auth"
	"eventdesk/internal/importjob"
	"eventdesk/internal/participant"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Row   int    `json:"row,omitempty"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error, actor auth.Actor) int {
	switch {
	case errors.Is(err, participant.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, participant.ErrIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, participant.ErrUnauthorized):
		if !actor.Authenticated() {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.Is(err, participant.ErrNotFound), errors.Is(err, importjob.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, participant.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, participant.ErrStore), participant.Canceled(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func renderErr(c *gin.Context, log *slog.Logger, err error) {
	actor := auth.ActorFrom(c)
	status := statusFor(err, actor)
	body := errorBody{Error: err.Error()}

	var ve *participant.ValidationError
	if errors.As(err, &ve) {
		body.Field, body.Row = ve.Field, ve.Row
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			"request_id", requestid.Get(c),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"actor", actor.String(),
			"err", err,
		)
		// Store internals stay in the log.
		body.Error = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
}
