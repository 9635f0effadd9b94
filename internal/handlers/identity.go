package handlers

import (
	"github.com/dogukanozdemir/Brokerage/internal/auth"
	"github.com/dogukanozdemir/Brokerage/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// callerIdentity reads the authenticated customer id and role set by the
// auth middleware. The bool is false when the middleware did not run or
// the token subject is not a uuid.
func callerIdentity(c *gin.Context) (service.Identity, bool) {
	rawID, ok := c.Get(auth.ContextCustomerIDKey)
	if !ok {
		return service.Identity{}, false
	}
	idStr, ok := rawID.(string)
	if !ok {
		return service.Identity{}, false
	}
	customerID, err := uuid.Parse(idStr)
	if err != nil {
		return service.Identity{}, false
	}

	role, _ := c.Get(auth.ContextRoleKey)
	roleStr, _ := role.(string)
	return service.Identity{CustomerID: customerID, Role: roleStr}, true
}
