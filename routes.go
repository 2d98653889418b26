package main

import (
	"errors"
	"net/http"
	"strconv"

	"content-hub/normalizer"
	"content-hub/providers"
	"content-hub/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// respondError übersetzt Service- und Transportfehler in HTTP-Status.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var te *providers.TransportError
	var pe *services.PersistenceError
	switch {
	case errors.As(err, &te):
		status := http.StatusBadGateway
		if te.Timeout {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, gin.H{"error": te.Error(), "provider": te.Provider, "upstream_status": te.StatusCode})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrUnknownGenerator), errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		log.Error("Persistence failure", zap.String("op", pe.Op), zap.Error(pe.Err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	default:
		log.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func setupHealthRoutes(router *gin.Engine, db *gorm.DB) {
	router.GET("/health", func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func setupContentRoutes(router *gin.Engine, svc *services.ContentService, log *zap.Logger) {
	rg := router.Group("/content")

	rg.GET("/generators", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"generators": svc.Generators()})
	})

	rg.POST("/generate", func(c *gin.Context) {
		var req struct {
			Generator string `json:"generator"`
			providers.GenerationRequest
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Topic == "" && req.TopicArea == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "topic or topicArea is required"})
			return
		}
		name := req.Generator
		if name == "" {
			name = defaultGenerator(svc.Generators())
		}
		out, err := svc.Generate(c.Request.Context(), name, req.GenerationRequest)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	rg.POST("/adjust", func(c *gin.Context) {
		var req services.AdjustRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		out, err := svc.Adjust(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	// Normalisiert eingefügten Text, ohne einen Generator aufzurufen
	rg.POST("/normalize", func(c *gin.Context) {
		var req struct {
			RawText   string `json:"raw_text"`
			TopicArea string `json:"topic_area"`
			Title     string `json:"title"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		c.JSON(http.StatusOK, svc.NormalizeRaw(req.RawText, normalizer.Context{TopicArea: req.TopicArea, Title: req.Title}))
	})

	rg.GET("/runs", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		runs, err := svc.Runs(c.Request.Context(), limit)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, runs)
	})

	rg.POST("/runs/:id/process", func(c *gin.Context) {
		var req struct {
			TopicArea string `json:"topic_area"`
			Title     string `json:"title"`
		}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}
		out, err := svc.Process(c.Request.Context(), c.Param("id"), normalizer.Context{TopicArea: req.TopicArea, Title: req.Title})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
}

// defaultGenerator bevorzugt den n8n-Webhook, sonst den ersten registrierten Generator.
func defaultGenerator(names []string) string {
	for _, n := range names {
		if n == "n8n" {
			return n
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func setupLibraryRoutes(router *gin.Engine, svc *services.LibraryService, export *services.ExportService, log *zap.Logger) {
	rg := router.Group("/library")

	rg.POST("/", func(c *gin.Context) {
		var req services.SaveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Error("Invalid request body for content item creation", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		item, err := svc.Save(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		item, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	rg.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req services.UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		item, err := svc.Update(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	rg.PATCH("/:id/saved", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req struct {
			IsSaved *bool `json:"is_saved"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.IsSaved == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_saved is required"})
			return
		}
		item, err := svc.SetSaved(c.Request.Context(), id, *req.IsSaved)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			respondError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.POST("/query", func(c *gin.Context) {
		var req services.LibraryQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		page, err := svc.Query(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, page)
	})

	rg.POST("/export", func(c *gin.Context) {
		if export == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export storage not configured"})
			return
		}
		res, err := export.Export(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}

func setupKeywordRoutes(router *gin.Engine, svc *services.KeywordService, log *zap.Logger) {
	rg := router.Group("/keywords")

	rg.POST("/research", func(c *gin.Context) {
		if svc.Source == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "keyword source not configured"})
			return
		}
		var req struct {
			Phrase string `json:"phrase" binding:"required"`
			Limit  int    `json:"limit"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phrase is required"})
			return
		}
		rows, err := svc.Research(c.Request.Context(), req.Phrase, req.Limit)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.POST("/query", func(c *gin.Context) {
		var req services.KeywordQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		rows, err := svc.Query(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})
}
