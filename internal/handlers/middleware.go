package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const subjectCtxKey = "subject"

const (
	errMissingAuth   = "missing Authorization header"
	errMalformedAuth = "invalid Authorization header format"
	errRejectedToken = "invalid or expired token"
)

// bearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively. On failure it returns the message
// sent to the client.
func bearerToken(header string) (token, errMsg string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuth
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMalformedAuth
	}
	return token, ""
}

// bearerMiddleware guards /api/v1 and records the token subject on the
// request context.
func (h *Handler) bearerMiddleware(c *gin.Context) {
	token, msg := bearerToken(c.GetHeader("Authorization"))
	if msg == "" {
		subject, err := h.services.ParseToken(token)
		if err == nil {
			c.Set(subjectCtxKey, subject)
			c.Next()
			return
		}
		msg = errRejectedToken
		if h.log != nil {
			h.log.Infow("token_rejected", "client_ip", c.ClientIP(), "path", c.FullPath(), "err", err)
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
