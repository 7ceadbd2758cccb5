package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/shaping"
)

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

// handleV1Intensity returns today's readings as flat rows
// GET /api/v1/intensity
func (s *Server) handleV1Intensity(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	payload, err := s.source.TodayIntensity(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	rows, err := shaping.BuildIntensityRows(payload.Data)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rows,
		"meta": gin.H{
			"count": len(rows),
		},
	})
}

// handleV1Generation returns the current generation mix in published order
// GET /api/v1/generation
func (s *Server) handleV1Generation(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	payload, err := s.source.GenerationMix(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	rows := shaping.BuildGenerationMixRows(payload.Data.GenerationMix)

	c.JSON(http.StatusOK, gin.H{
		"data": rows,
		"meta": gin.H{
			"count": len(rows),
			"total": shaping.MixTotal(rows),
			"from":  payload.Data.From,
			"to":    payload.Data.To,
		},
	})
}

// handleV1IntensityHistory returns archived readings for the last N days
// GET /api/v1/history/intensity?days=1
func (s *Server) handleV1IntensityHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive is not configured"})
		return
	}

	days := 1
	if d := c.Query("days"); d != "" {
		val, err := strconv.Atoi(d)
		if err != nil || val <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		days = val
	}

	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	snapshots, err := s.history.IntensitySince(ctx, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snapshots,
		"meta": gin.H{
			"since": since.Format(time.RFC3339),
			"count": len(snapshots),
		},
	})
}
