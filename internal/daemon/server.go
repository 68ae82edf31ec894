package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"statsync/internal/api"
	"statsync/internal/logger"
	"statsync/internal/model"
	"statsync/internal/repository"
	"statsync/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	echo    *echo.Echo
	manager *JobManager
	journal *repository.JobRepository
	port    int
	stopCh  chan struct{}
}

func NewServer(manager *JobManager, journal *repository.JobRepository, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:    e,
		manager: manager,
		journal: journal,
		port:    port,
		stopCh:  make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// For the entire daemon
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Jobs
	g := s.echo.Group("/jobs")
	g.POST("", s.handleTrigger)
	g.POST("/:id/cancel", s.handleCancel)
	g.POST("/refresh", s.handleSyncActive)
	s.echo.GET("/history", s.handleHistory)
	s.echo.GET("/history/stats", s.handleJournalStats)
	s.echo.GET("/history/:id", s.handleJournalRecord)

	// Freshness and seasons
	s.echo.GET("/freshness", s.handleFreshness)
	s.echo.POST("/freshness/refresh", s.handleRefresh)
	s.echo.GET("/seasons", s.handleSeasons)
	s.echo.GET("/seasons/available", s.handleAvailableSeasons)
	s.echo.DELETE("/seasons/:season", s.handleDeleteSeason)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() {
	go func() {
		addr := "127.0.0.1:" + strconv.Itoa(s.port)
		logger.Log.Info("Daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.manager.StopAll()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// backendError maps an error from the manager to the daemon's status codes.
func backendError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, store.ErrSyncInProgress):
		return errorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, api.ErrConflict):
		return errorJSON(c, http.StatusConflict, api.Reason(err, fallback))
	case errors.Is(err, api.ErrBadRequest):
		return errorJSON(c, http.StatusBadRequest, api.Reason(err, fallback))
	case errors.Is(err, api.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, api.Reason(err, fallback))
	default:
		logger.Log.Warn(fallback, zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, api.Reason(err, fallback))
	}
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleTrigger(c echo.Context) error {
	var req TriggerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	jobType, err := model.ParseJobType(req.Type)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if req.Season != nil && !jobType.AcceptsSeason() {
		return errorJSON(c, http.StatusBadRequest, fmt.Sprintf("%s sync does not take a season", jobType.Display()))
	}

	job, err := s.manager.Trigger(c.Request().Context(), jobType, req.Season)
	if err != nil {
		return backendError(c, err, "Failed to start sync")
	}

	return c.JSON(http.StatusCreated, job)
}

func (s *Server) handleCancel(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	job, err := s.manager.Cancel(c.Request().Context(), id)
	if err != nil {
		return backendError(c, err, "Failed to cancel job")
	}

	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleSyncActive(c echo.Context) error {
	if err := s.manager.SyncActive(c.Request().Context()); err != nil {
		return backendError(c, err, "Failed to refresh jobs")
	}
	return c.JSON(http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleHistory(c echo.Context) error {
	n := s.manager.Store().HistoryLimit()
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil && parsed > 0 {
			n = parsed
		}
	}

	if c.QueryParam("local") != "true" {
		hist := s.manager.Store().History()
		if len(hist) > n {
			hist = hist[:n]
		}
		return c.JSON(http.StatusOK, hist)
	}

	if s.journal == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "journal disabled")
	}

	var (
		records []model.JobRecord
		err     error
	)
	if c.QueryParam("failed") == "true" {
		records, err = s.journal.GetFailed()
		if len(records) > n {
			records = records[:n]
		}
	} else {
		records, err = s.journal.GetRecent(n)
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleJournalStats(c echo.Context) error {
	if s.journal == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "journal disabled")
	}

	stats, err := s.journal.GetStats()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleJournalRecord(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}
	if s.journal == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "journal disabled")
	}

	rec, err := s.journal.GetByJobID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorJSON(c, http.StatusNotFound, fmt.Sprintf("job %d is not in the journal", id))
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleFreshness(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.Freshness())
}

func (s *Server) handleRefresh(c echo.Context) error {
	if err := s.manager.Refresh(c.Request().Context()); err != nil {
		return backendError(c, err, "Failed to refresh")
	}
	return c.JSON(http.StatusOK, s.manager.Freshness())
}

func (s *Server) handleSeasons(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.Store().Seasons())
}

func (s *Server) handleAvailableSeasons(c echo.Context) error {
	seasons, err := s.manager.AvailableSeasons(c.Request().Context())
	if err != nil {
		return backendError(c, err, "Failed to load available seasons")
	}
	return c.JSON(http.StatusOK, seasons)
}

func (s *Server) handleDeleteSeason(c echo.Context) error {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid season")
	}

	if err := s.manager.DeleteSeason(c.Request().Context(), season); err != nil {
		return backendError(c, err, "Failed to delete season")
	}

	return c.NoContent(http.StatusNoContent)
}
