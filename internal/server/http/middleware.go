package httpserver

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/service"
)

const (
	principalKey = "rewear.principal"
	tokenCookie  = "token"
)

// Logging writes one access log line per request. Bodies are never logged.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Recovery turns a handler panic into a 500.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.FullPath()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// bearer extracts the access token from the Authorization header or the cookie.
func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(tok)
	}
	tok, _ := c.Cookie(tokenCookie)
	return tok
}

// Authenticate resolves the caller and requires the given role.
func Authenticate(auth service.AuthService, role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c)
		if tok == "" {
			abort(c, errs.ErrUnauthorized)
			return
		}
		p, err := auth.Authenticate(c.Request.Context(), tok)
		if err != nil {
			abort(c, err)
			return
		}
		if p.Role != role {
			abort(c, errs.ErrForbidden)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// principal returns the caller set by Authenticate.
func principal(c *gin.Context) (model.Principal, error) {
	v, ok := c.Get(principalKey)
	if !ok {
		return model.Principal{}, errs.ErrUnauthorized
	}
	p, ok := v.(model.Principal)
	if !ok {
		return model.Principal{}, errors.New("principal has unexpected type")
	}
	return p, nil
}
