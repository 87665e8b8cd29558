package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/arnavshah/care-coverage-api/pkg/database"
)

// GetMyUsage returns usage stats for the calling integration key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		h.serverError(c, errors.New("api key missing from context"))
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var usage []database.APIUsage
	if err := h.DB.Where("key_id = ?", apiKey.ID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		h.serverError(c, errors.Wrap(err, "load usage"))
		return
	}

	var totalRequests, totalStudents, totalStaff int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalStudents += int64(u.TotalStudents)
		totalStaff += int64(u.TotalStaff)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests": totalRequests,
			"students": totalStudents,
			"staff":    totalStaff,
		},
	})
}
