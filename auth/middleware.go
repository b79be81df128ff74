package auth

import (
	"net/http"
	"strings"

	"aeternum/models"
	"aeternum/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const actorKey = "actor"

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": util.UNAUTHORIZED})
}

/*
* Prefer the session cookie, then the bearer header
* A cookie that no longer verifies is cleared and the request goes on without it
* A bad bearer header is rejected instead of ignored
* No credentials at all leaves the request anonymous
 */
func SessionResolver(tokens *TokenManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			actor, err := tokens.Verify(cookie)
			if err == nil {
				c.Set(actorKey, actor)
				c.Next()
				return
			}
			log.Info().Err(err).Str("path", c.Request.URL.Path).Msg("Clearing stale session cookie")
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			log.Warn().Str("path", c.Request.URL.Path).Msg("Malformed authorization header")
			unauthorized(c)
			return
		}
		actor, err := tokens.Verify(token)
		if err != nil {
			log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected session token")
			unauthorized(c)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the resolved caller, nil when anonymous.
func ActorFrom(c *gin.Context) *models.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*models.Actor)
	return actor
}

func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c) == nil {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			unauthorized(c)
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		unauthorized(c)
	}
}
