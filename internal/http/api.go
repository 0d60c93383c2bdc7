package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"challenge-cards/internal/auth"
	"challenge-cards/internal/domain"
	"challenge-cards/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	ratings service.RatingService
	stats   service.StatsService
	exports service.ExportService
	issuer  *auth.Issuer
	log     *logrus.Logger
}

// Options configures the cross-cutting middleware.
type Options struct {
	AllowedOrigins []string
	Limiter        *RateLimiter
}

func NewHandler(users service.UserService, ratings service.RatingService, stats service.StatsService, exports service.ExportService, issuer *auth.Issuer, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		users:   users,
		ratings: ratings,
		stats:   stats,
		exports: exports,
		issuer:  issuer,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, opts Options) {
	router.Use(requestLogger(h.log))
	router.Use(corsMiddleware(opts.AllowedOrigins))
	if opts.Limiter != nil {
		router.Use(opts.Limiter.Middleware())
	}

	router.GET("/health", h.health)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	protected := router.Group("/", authGate(h.issuer))
	{
		protected.PUT("/feedback", h.upsertRating)
		protected.GET("/feedback", h.listRatings)
		protected.POST("/feedback/export", h.exportRatings)
		protected.GET("/feedback/exports", h.listExports)
		protected.GET("/user/profile", h.profile)
		protected.GET("/admin/stats", h.adminStats)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

type registerRequest struct {
	Email        string               `json:"email"`
	Password     string               `json:"password"`
	FirstName    string               `json:"firstName"`
	LastName     string               `json:"lastName"`
	Demographics *domain.Demographics `json:"demographics"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.Registration{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Demographics: req.Demographics,
	})
	if err != nil {
		h.writeError(c, err, "Registration failed")
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		h.writeError(c, err, "Registration failed")
		return
	}

	h.log.WithField("user_id", user.ID).Info("user registered")
	c.JSON(http.StatusCreated, gin.H{"success": true, "token": token, "user": userToResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err, "Login failed")
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		h.writeError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": userToResponse(user)})
}

type upsertRatingRequest struct {
	CardName    string `json:"cardName"`
	RatingType  string `json:"ratingType"`
	RatingValue *int   `json:"ratingValue"`
}

func (h *Handler) upsertRating(c *gin.Context) {
	id := identityFrom(c)

	var req upsertRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if strings.TrimSpace(req.CardName) == "" || req.RatingType == "" || req.RatingValue == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	dim, err := domain.ParseDimension(req.RatingType)
	if err != nil {
		h.writeError(c, err, "Rating update failed")
		return
	}

	res, err := h.ratings.Upsert(c.Request.Context(), id.UserID, req.CardName, dim, *req.RatingValue)
	if err != nil {
		h.writeError(c, err, "Rating update failed")
		return
	}

	h.log.WithFields(logrus.Fields{
		"user_id":     id.UserID,
		"card":        req.CardName,
		"rating_type": dim,
		"value":       *req.RatingValue,
		"upserted":    res.Upserted(),
	}).Debug("rating saved")

	c.JSON(http.StatusOK, gin.H{"success": true, "modified": res.Modified(), "upserted": res.Upserted()})
}

func (h *Handler) listRatings(c *gin.Context) {
	id := identityFrom(c)

	records, err := h.ratings.ListForUser(c.Request.Context(), id.UserID)
	if err != nil {
		h.writeError(c, err, "Failed to fetch ratings")
		return
	}

	resp := make([]RatingResponse, len(records))
	for i := range records {
		resp[i] = ratingToResponse(records[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ratings": resp})
}

func (h *Handler) profile(c *gin.Context) {
	id := identityFrom(c)

	user, err := h.users.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.writeError(c, err, "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userToResponse(user)})
}

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to fetch statistics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": statsToResponse(stats)})
}

func (h *Handler) exportRatings(c *gin.Context) {
	id := identityFrom(c)
	if h.exports == nil {
		h.writeError(c, service.ErrExportDisabled, "")
		return
	}

	export, err := h.exports.Export(c.Request.Context(), id.UserID)
	if err != nil {
		h.writeError(c, err, "Export failed")
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": id.UserID, "location": export.Location}).Info("ratings exported")
	c.JSON(http.StatusOK, gin.H{"success": true, "location": export.Location, "url": export.URL})
}

func (h *Handler) listExports(c *gin.Context) {
	id := identityFrom(c)
	if h.exports == nil {
		h.writeError(c, service.ErrExportDisabled, "")
		return
	}

	objects, err := h.exports.List(c.Request.Context(), id.UserID)
	if err != nil {
		h.writeError(c, err, "Failed to list exports")
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "exports": resp})
}

// writeError maps domain failures to a status code and a client-facing
// message. Unclassified errors are logged and reported with fallback.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrExportDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": publicMessage(err, domain.ErrValidation)})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": publicMessage(err, domain.ErrConflict)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func publicMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
