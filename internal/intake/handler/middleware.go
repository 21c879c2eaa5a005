package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"recruit-intake/internal/intake/domain"
)

const sessionKey = "intake.session"

// requireSession checks the bearer token against the :id path parameter and loads the session.
func (h *Handler) requireSession(c *gin.Context) {
	raw := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok || token == "" {
		h.writeError(c, errUnauthorized)
		return
	}
	sessionID, err := h.tokens.Validate(strings.TrimSpace(token))
	if err != nil || sessionID != c.Param("id") {
		h.writeError(c, errUnauthorized)
		return
	}
	s := h.sessions.Get(sessionID)
	if s == nil {
		h.writeError(c, errUnknownSession)
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func sessionFrom(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*domain.Session)
	return s
}
