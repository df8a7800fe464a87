package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SystemActor is recorded when no authenticated user is attached to a request.
const SystemActor = "system"

// ActorID returns the authenticated user id, if any.
func ActorID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// Actor returns the actor label used in audit records.
func Actor(c *gin.Context) string {
	if id, ok := ActorID(c); ok {
		return id.String()
	}
	return SystemActor
}
