package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/care-coverage-api/pkg/auth"
	"github.com/arnavshah/care-coverage-api/pkg/database"
	"github.com/arnavshah/care-coverage-api/pkg/logger"
	"github.com/arnavshah/care-coverage-api/pkg/staffing"
)

// defaultRateLimit is the daily request allowance of a new integration key.
const defaultRateLimit = 10000

// Handler contains dependencies for the route handlers
type Handler struct {
	DB     *gorm.DB
	Store  *database.Store
	Engine *staffing.Engine
	Auth   *auth.Authenticator
	Log    *logger.Logger
}

func New(db *gorm.DB, engine *staffing.Engine, authn *auth.Authenticator, log *logger.Logger) *Handler {
	return &Handler{
		DB:     db,
		Store:  database.NewStore(db),
		Engine: engine,
		Auth:   authn,
		Log:    log,
	}
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// AuthMiddleware verifies the coordinator JWT for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC integration key for analysis routes
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		name, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		// Fetch or create the key record to track usage
		var apiKey database.APIKey
		err = h.DB.WithContext(c.Request.Context()).
			Where(database.APIKey{Key: key}).
			Attrs(database.APIKey{KeyPreview: auth.KeyPreview(key), Name: name, RateLimit: defaultRateLimit}).
			FirstOrCreate(&apiKey).Error
		if err != nil {
			h.serverError(c, errors.Wrap(err, "load api key"))
			return
		}

		var today database.APIUsage
		err = h.DB.Where("key_id = ? AND date = ?", apiKey.ID, time.Now().Format("2006-01-02")).
			Limit(1).Find(&today).Error
		if err != nil {
			h.serverError(c, errors.Wrap(err, "load usage"))
			return
		}
		if today.RequestCount >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily rate limit reached"})
			return
		}

		now := time.Now()
		if err := h.DB.Model(&apiKey).Update("last_used", now).Error; err != nil {
			h.Log.Warn("update last_used failed", err)
		}
		apiKey.LastUsed = &now

		c.Set("apiKey", &apiKey)
		c.Set("keyName", name)
		c.Next()
	}
}

// RecordUsage records API usage in the database using an upsert
func (h *Handler) RecordUsage(c *gin.Context, studentCount, staffCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// OnConflict gives a single-query upsert on both Postgres and SQLite
	err := h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":  gorm.Expr("request_count + ?", 1),
			"total_students": gorm.Expr("total_students + ?", studentCount),
			"total_staff":    gorm.Expr("total_staff + ?", staffCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:         apiKey.ID,
		Date:          today,
		RequestCount:  1,
		TotalStudents: studentCount,
		TotalStaff:    staffCount,
	}).Error
	if err != nil {
		h.Log.Warn("record usage failed", err)
	}
}

// Index describes the service
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Care Coverage API",
		"version": "1.0.0",
	})
}

// Health pings the database
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Login handles coordinator login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.Coordinator
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Auth.CreateToken(user.Username)
	if err != nil {
		h.serverError(c, errors.Wrap(err, "create token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new integration key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		RateLimit int    `json:"rate_limit" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = defaultRateLimit
	}

	key := h.Auth.GenerateHMACKey(req.Name)
	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: auth.KeyPreview(key),
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   apiKey.ID,
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all integration keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	if err := h.DB.Order("id").Find(&keys).Error; err != nil {
		h.serverError(c, errors.Wrap(err, "list keys"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an integration key
func (h *Handler) RevokeKey(c *gin.Context) {
	res := h.DB.Delete(&database.APIKey{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		h.serverError(c, errors.Wrap(res.Error, "revoke key"))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit" binding:"required,min=1"`
	}

	// Try JSON first, then the query string
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	res := h.DB.Model(&database.APIKey{}).Where("id = ?", c.Param("id")).Update("rate_limit", req.RateLimit)
	if res.Error != nil {
		h.serverError(c, errors.Wrap(res.Error, "update key limit"))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns the last 30 days of usage for a key
func (h *Handler) GetUsage(c *gin.Context) {
	var usage []database.APIUsage
	if err := h.DB.Where("key_id = ?", c.Param("id")).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		h.serverError(c, errors.Wrap(err, "load usage"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// serverError logs err and answers 500 without leaking details.
func (h *Handler) serverError(c *gin.Context, err error) {
	h.Log.Error("request failed", err, map[string]interface{}{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// storeError maps store errors to responses.
func (h *Handler) storeError(c *gin.Context, err error) {
	if errors.Cause(err) == database.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	h.serverError(c, err)
}
