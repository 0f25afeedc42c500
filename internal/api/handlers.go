package api

import (
	"errors"
	"net/http"
	"strconv"

	"tradebot-config/internal/configuration"
	"tradebot-config/internal/events"
	"tradebot-config/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (s *Server) handleListSnapshots(c *gin.Context) {
	successResponse(c, gin.H{"keys": s.session.Keys()})
}

func (s *Server) handleGetStartup(c *gin.Context) {
	s.getSnapshot(c, s.session.Startup)
}

func (s *Server) handleGetEdited(c *gin.Context) {
	s.getSnapshot(c, s.session.Edited)
}

func (s *Server) getSnapshot(c *gin.Context, get func(key string, dictOnly bool) (interface{}, error)) {
	key := c.Param("key")
	dictOnly, err := strconv.ParseBool(c.DefaultQuery("dict_only", "false"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "dict_only must be a boolean")
		return
	}

	value, err := get(key, dictOnly)
	switch {
	case errors.Is(err, configuration.ErrKeyNotFound):
		errorResponse(c, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, configuration.ErrNoProjection):
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, gin.H{"key": key, "value": value})
}

func (s *Server) handleHealthCheck(c *gin.Context) {
	inBacktesting := s.session.InBacktesting()
	if raw, ok := c.GetQuery("backtesting"); ok {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "backtesting must be a boolean")
			return
		}
		inBacktesting = parsed
	}

	runID := logging.TraceIDFromContext(c.Request.Context())
	if runID == "" {
		runID = uuid.New().String()
	}
	l := logging.FromContext(c.Request.Context())

	report, err := s.session.CheckMode(inBacktesting)
	if s.eventBus != nil {
		var saved, reloaded bool
		if report != nil {
			saved, reloaded = report.Saved, report.Reloaded
		}
		s.eventBus.PublishHealthChecked(runID, saved, reloaded, err)
	}
	if err != nil {
		l.Exception(err, true, "Configuration health check failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   true,
			"message": err.Error(),
			"run_id":  runID,
			"report":  report,
		})
		return
	}

	l.Info("Configuration health check done", "saved", report.Saved, "reloaded", report.Reloaded)
	successResponse(c, gin.H{"run_id": runID, "report": report})
}

func (s *Server) handleRecentEvents(c *gin.Context) {
	recent := []events.Event{}
	if s.recent != nil {
		recent = s.recent.Recent()
	}
	successResponse(c, gin.H{"events": recent})
}
