package main

import (
	"io"
	"net/http"

	"content-hub/events"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var knownTopics = []events.Topic{
	events.TopicContentUpdated,
	events.TopicContentSaved,
	events.TopicNavigateToTab,
	events.TopicKeywordsRefreshed,
}

func parseTopics(raw []string) ([]events.Topic, bool) {
	if len(raw) == 0 {
		return knownTopics, true
	}
	topics := make([]events.Topic, 0, len(raw))
	for _, r := range raw {
		found := false
		for _, t := range knownTopics {
			if string(t) == r {
				topics = append(topics, t)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return topics, true
}

func setupEventRoutes(router *gin.Engine, bus *events.Bus, log *zap.Logger) {
	rg := router.Group("/events")

	// Server-Sent Events, optional gefiltert über ?topic=...
	rg.GET("", func(c *gin.Context) {
		topics, ok := parseTopics(c.QueryArray("topic"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic"})
			return
		}

		ch := bus.Stream(c.Request.Context(), 32, topics...)
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		log.Debug("Event stream opened", zap.Int("topics", len(topics)))

		c.Stream(func(w io.Writer) bool {
			ev, ok := <-ch
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Topic), ev)
			return true
		})
		log.Debug("Event stream closed")
	})

	rg.POST("/navigate", func(c *gin.Context) {
		var req events.NavigateToTab
		if err := c.ShouldBindJSON(&req); err != nil || req.Tab == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tab is required"})
			return
		}
		ev := bus.Publish(events.TopicNavigateToTab, req)
		c.JSON(http.StatusAccepted, ev)
	})
}
