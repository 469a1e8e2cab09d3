package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"local-auth/internal/domain"
	"local-auth/internal/service"
)

const requestIDHeader = "X-Request-ID"

// Handler wires HTTP routes to the auth store in scope.
type Handler struct {
	store  service.Authenticator
	tokens *TokenIssuer
	logger *logrus.Logger
}

func NewHandler(store service.Authenticator, jwtSecret string, tokenTTL time.Duration, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		store:  store,
		tokens: NewTokenIssuer(jwtSecret, tokenTTL),
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestIDMiddleware(), h.accessLogMiddleware(), h.providerMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)
		api.GET("/auth/me", h.me)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func (h *Handler) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start),
		}).Debug("request")
	}
}

// providerMiddleware scopes the store to every request context.
func (h *Handler) providerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(service.WithAuthStore(c.Request.Context(), h.store))
		c.Next()
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := service.MustAuthStore(c.Request.Context())
	user, err := store.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSession(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := service.MustAuthStore(c.Request.Context())
	user, err := store.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSession(c, http.StatusOK, user)
}

func (h *Handler) logout(c *gin.Context) {
	service.MustAuthStore(c.Request.Context()).Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	claims, err := h.bearerClaims(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, ok := service.MustAuthStore(c.Request.Context()).CurrentUser()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not logged in"})
		return
	}
	if !domain.SameEmail(claims.Email, user.Email) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token does not match the current session"})
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) bearerClaims(c *gin.Context) (*Claims, error) {
	header := c.GetHeader("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(raw) == "" {
		return nil, errInvalidToken
	}
	return h.tokens.Verify(strings.TrimSpace(raw))
}

func (h *Handler) writeSession(c *gin.Context, status int, user domain.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.WithError(err).Error("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(status, SessionResponse{User: userToResponse(user), Token: token})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch service.OutcomeOf(err) {
	case service.OutcomeNotFound:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case service.OutcomeConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("auth storage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
	}
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{Name: user.Name, Email: user.Email}
}
