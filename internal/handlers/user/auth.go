// Package user regroupe les routes côté client : compte, panier et suivi
// des commandes.
package user

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/repository"
	"threadsntrends_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpsertOAuth(ctx context.Context, provider, providerID, email, name string) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type TokenIssuer interface {
	Issue(user models.User) (string, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog) error
}

type AuthHandler struct {
	users       UserStore
	tokens      TokenIssuer
	audit       AuditRecorder
	frontendURL string
}

// audit peut être nil quand Scylla n'est pas configuré.
func NewAuthHandler(users UserStore, tokens TokenIssuer, audit AuditRecorder, frontendURL string) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, audit: audit, frontendURL: strings.TrimRight(frontendURL, "/")}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=128"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("❌ Hash du mot de passe impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	u := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		Role:     models.RoleUser,
		Provider: "local",
	}
	if err := h.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Un compte avec cet email existe déjà"})
			return
		}
		log.Error().Err(err).Msg("❌ Création du compte impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}

	h.respondWithToken(c, http.StatusCreated, *u)
	log.Info().Str("user_id", u.ID.Hex()).Msg("✅ Compte créé")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := handlers.Context(c)
	defer cancel()

	u, err := h.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Msg("❌ Recherche utilisateur impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}
	ok := false
	if u != nil && u.Password != "" {
		ok, _ = auth.VerifyPassword(req.Password, u.Password)
	}
	if !ok {
		h.recordLogin(c, email, "", false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	if auth.IsBcryptHash(u.Password) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.users.UpdatePassword(ctx, u.ID, hash); err != nil {
				log.Warn().Err(err).Str("user_id", u.ID.Hex()).Msg("⚠️ Migration du hash bcrypt impossible")
			}
		}
	}

	h.recordLogin(c, email, u.ID.Hex(), true)
	h.respondWithToken(c, http.StatusOK, *u)
}

func (h *AuthHandler) Me(c *gin.Context) {
	p := auth.FromContext(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	u, err := h.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
			return
		}
		log.Error().Err(err).Msg("❌ Lecture du profil impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// BeginOAuth redirige vers Google ou Facebook. gothic lit le fournisseur
// dans la query, on y recopie donc le paramètre de route.
func (h *AuthHandler) BeginOAuth(c *gin.Context) {
	setProvider(c)
	if gu, err := gothic.CompleteUserAuth(c.Writer, c.Request); err == nil {
		h.finishOAuth(c, gu)
		return
	}
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	setProvider(c)
	gu, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Warn().Err(err).Str("provider", c.Param("provider")).Msg("❌ Échec OAuth")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentification refusée"})
		return
	}
	h.finishOAuth(c, gu)
}

func (h *AuthHandler) finishOAuth(c *gin.Context, gu goth.User) {
	if gu.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le fournisseur n'a pas transmis d'email"})
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	name := gu.Name
	if name == "" {
		name = strings.TrimSpace(gu.FirstName + " " + gu.LastName)
	}
	u, err := h.users.UpsertOAuth(ctx, gu.Provider, gu.UserID, strings.ToLower(gu.Email), name)
	if err != nil {
		log.Error().Err(err).Str("provider", gu.Provider).Msg("❌ Synchronisation utilisateur OAuth impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}
	token, err := h.tokens.Issue(*u)
	if err != nil {
		log.Error().Err(err).Msg("❌ Génération du token impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}
	h.recordLogin(c, u.Email, u.ID.Hex(), true)
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/callback?token="+url.QueryEscape(token))
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, u models.User) {
	token, err := h.tokens.Issue(u)
	if err != nil {
		log.Error().Err(err).Msg("❌ Génération du token impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}
	c.JSON(status, gin.H{"token": token, "user": u})
}

func (h *AuthHandler) recordLogin(c *gin.Context, email, userID string, success bool) {
	if h.audit == nil {
		return
	}
	action := services.ActionLoginSuccess
	if !success {
		action = services.ActionLoginFailed
	}
	entry := models.AuditLog{
		UserID:    userID,
		UserEmail: email,
		Action:    action,
		Resource:  services.ResourceAuth,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   success,
		Timestamp: time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.audit.Record(ctx, entry); err != nil {
			log.Error().Err(err).Msg("❌ Erreur enregistrement log audit")
		}
	}()
}

func setProvider(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", c.Param("provider"))
	c.Request.URL.RawQuery = q.Encode()
}
