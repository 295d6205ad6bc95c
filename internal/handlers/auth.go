package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenRequest carries the operator key.
type TokenRequest struct {
	Key string `json:"key" binding:"required" example:"operator-key"`
}

// bindJSONOrBadRequest answers 400 and returns false when the body does not
// bind into dst.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// @Summary      Issue API token
// @Description  Exchanges the operator key for a bearer token. Returns 400 when auth is disabled.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      TokenRequest  true  "Operator key"
// @Success      200   {object}  map[string]string  "token"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/token [post]
func (h *Handler) issueToken(c *gin.Context) {
	if !h.authEnabled() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "auth is disabled"})
		return
	}

	var input TokenRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, err := h.services.GenerateToken(input.Key)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_denied", "err", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
