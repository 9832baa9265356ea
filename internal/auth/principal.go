// Package auth gère l'identité de l'appelant : jetons JWT, mots de passe
// et fournisseurs OAuth.
package auth

import (
	"threadsntrends_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

const principalKey = "auth.principal"

// Principal est l'utilisateur authentifié attaché à une requête.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

func WithPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}

// FromContext renvoie nil pour une requête anonyme.
func FromContext(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}
