package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collections/internal/settings"
)

type AIConfigRequest struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`
}

func (s *Server) updateAIConfig(c *gin.Context) {
	var req AIConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if s.LLM == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "llm not available"})
		return
	}

	s.LLM.Configure(req.BaseURL, req.APIKey, req.Model)
	if s.Settings != nil {
		if err := s.Settings.SaveLLM(c.Request.Context(), settings.LLMSettings{
			BaseURL: req.BaseURL,
			APIKey:  req.APIKey,
			Model:   req.Model,
		}); err != nil {
			s.logger().Error("save llm settings failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save settings failed"})
			return
		}
	}
	c.JSON(http.StatusOK, s.LLM.Settings())
}
