package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"qualiflow/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// respondError maps service error kinds to HTTP statuses. Anything
// unrecognized is a 500; the detail stays in the server log only.
func (h *Handler) respondError(c *gin.Context, err error) {
	var transition *services.TransitionError

	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrStepNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrDuplicateOrder),
		errors.Is(err, services.ErrReferentialConflict),
		errors.Is(err, services.ErrProcessCancelled),
		errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"from":  transition.From,
			"to":    transition.To,
		})

	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// currentUserID pulls the acting user out of the session. RequireAuth
// guards the routes, so a missing id means a broken session.
func currentUserID(c *gin.Context) (uint, bool) {
	sess := sessions.Default(c)
	uid, ok := sess.Get("user_id").(uint)
	return uid, ok && uid > 0
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(param))
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+param)
		return 0, false
	}
	return uint(id), true
}

// queryUint reads an optional uint query parameter, nil when absent. A
// present but malformed value is a 400; the response is already written
// when ok is false.
func queryUint(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	u := uint(v)
	return &u, true
}
