package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"collections/internal/ai"
	"collections/internal/collection"
	"collections/internal/settings"
	"collections/internal/storage"
)

// UploadStore serves previously uploaded images.
type UploadStore interface {
	Open(ctx context.Context, objectPath string) (io.ReadCloser, storage.ObjectInfo, error)
}

// Sizer reports the number of live entries in a cache.
type Sizer interface {
	Len() int
}

type Server struct {
	Collections *collection.Service
	Uploads     UploadStore
	LLM         *ai.Client
	Settings    *settings.Store
	MetCache    Sizer
	AICache     Sizer
	TempDir     string
	Logger      *slog.Logger
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.banner)
	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	api.POST("/import/met", s.importMet)
	api.POST("/import/csv", s.importCSV)
	api.POST("/enrich/:id", s.enrichItem)
	api.GET("/items", s.listItems)
	api.GET("/departments", s.listDepartments)
	api.GET("/uploads/*path", s.getUpload)
	api.POST("/ai/config", s.updateAIConfig)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "collections", "ok": true})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"cache": gin.H{
			"met": cacheLen(s.MetCache),
			"ai":  cacheLen(s.AICache),
		},
	})
}

func cacheLen(c Sizer) int {
	if c == nil {
		return 0
	}
	return c.Len()
}

// enrichItem answers null for an unknown id.
func (s *Server) enrichItem(c *gin.Context) {
	item, err := s.Collections.EnrichWithAI(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			// removed between lookup and keyword write
			c.JSON(http.StatusOK, nil)
			return
		}
		s.logger().Error("enrich failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enrich failed", "message": err.Error()})
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, collection.ToItemResponse(*item))
}

func (s *Server) listItems(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(collection.DefaultPageSize)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if err := collection.ValidatePage(page, limit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination", "message": err.Error()})
		return
	}

	result, err := s.Collections.ListItems(c.Request.Context(), page, limit)
	if err != nil {
		s.logger().Error("list items failed", "page", page, "limit", limit, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listDepartments(c *gin.Context) {
	departments, err := s.Collections.Departments(c.Request.Context())
	if err != nil {
		s.logger().Error("met departments failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "departments unavailable", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, departments)
}

func (s *Server) getUpload(c *gin.Context) {
	if s.Uploads == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	p := c.Param("path")
	if len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	if p == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	obj, info, err := s.Uploads.Open(c.Request.Context(), storage.UploadObjectPath(p))
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger().Warn("open upload failed", "path", p, "error", err)
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	defer obj.Close()

	c.Header("Content-Type", storage.GuessContentType(p, info.ContentType))
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, obj)
}
