// README: Actor resolution middleware.
package middleware

import "github.com/gin-gonic/gin"

const actorKey = "actor_id"

// Auth copies the authenticated actor id from the gateway header into the
// request context. Session and role resolution happen upstream in the auth
// service; this service trusts the header it is handed.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := c.GetHeader("X-Actor-ID"); actor != "" {
			c.Set(actorKey, actor)
		}
		c.Next()
	}
}

// Actor returns the actor id resolved for this request, if any.
func Actor(c *gin.Context) (string, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}
