package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"statsync/internal/model"

	"github.com/labstack/echo/v4"
)

const CSRFToken = "test-csrf-token"

type streamMsg struct {
	payload []byte
	close   bool
}

// Backend is an in-process stand-in for the stats backend's ingestion,
// sync-job, freshness and season endpoints. Tests drive job progress by
// pushing updates onto a job's stream.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	nextID    int64
	jobs      map[int64]*model.SyncJob
	order     []int64
	streams   map[int64]chan streamMsg
	freshness model.FreshnessList
	seasons   []model.SeasonData
	available []int
	calls     map[string]int

	triggerErr    *httpError
	getJobErr     *httpError
	streamStatus  int
	requireCSRF   bool
	sessionCookie string
}

type httpError struct {
	status int
	msg    string
}

func NewBackend() *Backend {
	b := &Backend{
		nextID:  1,
		jobs:    make(map[int64]*model.SyncJob),
		streams: make(map[int64]chan streamMsg),
		calls:   make(map[string]int),
		freshness: model.FreshnessList{
			{Type: model.JobTypeFullSync, Level: model.FreshnessCritical, Description: "Never synced"},
			{Type: model.JobTypeTeams, Level: model.FreshnessFresh, Description: "3 hours ago"},
			{Type: model.JobTypeGames, Level: model.FreshnessStale, Description: "2 hours ago"},
		},
		available: []int{2025, 2024, 2023},
	}

	e := echo.New()
	e.HideBanner = true

	g := e.Group("/api")
	g.Use(b.track, b.csrf)
	g.POST("/ingestion/:segment", b.handleTrigger)
	g.GET("/sync-jobs/active", b.handleActive)
	g.GET("/sync-jobs/recent", b.handleRecent)
	g.GET("/sync-jobs/:id", b.handleGetJob)
	g.GET("/sync-jobs/:id/stream", b.handleStream)
	g.POST("/sync-jobs/:id/cancel", b.handleCancel)
	g.GET("/data-freshness", b.handleFreshness)
	g.GET("/seasons/synced", b.handleSeasons)
	g.GET("/seasons/available", b.handleAvailable)
	g.DELETE("/seasons/:season", b.handleDeleteSeason)

	b.Server = httptest.NewServer(e)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) Close() {
	b.mu.Lock()
	for id, ch := range b.streams {
		close(ch)
		delete(b.streams, id)
	}
	b.mu.Unlock()

	b.Server.CloseClientConnections()
	b.Server.Close()
}

// Calls returns how many requests hit the route registered under path,
// e.g. "/api/data-freshness" or "/api/sync-jobs/:id".
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *Backend) AddJob(job model.SyncJob) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if job.ID >= b.nextID {
		b.nextID = job.ID + 1
	}
	b.jobs[job.ID] = &job
	b.order = append(b.order, job.ID)
}

// SetNextID makes the next triggered job take id.
func (b *Backend) SetNextID(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID = id
}

func (b *Backend) SetJob(job model.SyncJob) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[job.ID] = &job
}

func (b *Backend) Job(id int64) (model.SyncJob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return model.SyncJob{}, false
	}
	return j.Clone(), true
}

func (b *Backend) SetFreshness(list model.FreshnessList) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.freshness = list
}

func (b *Backend) SetSeasons(seasons []model.SeasonData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seasons = seasons
}

func (b *Backend) FailTrigger(status int, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggerErr = &httpError{status, msg}
}

func (b *Backend) FailGetJob(status int, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getJobErr = &httpError{status, msg}
}

func (b *Backend) RecoverGetJob() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getJobErr = nil
}

// FailStream makes stream requests answer with status instead of an event stream.
func (b *Backend) FailStream(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamStatus = status
}

func (b *Backend) RequireCSRF() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requireCSRF = true
}

// RequireSession rejects requests that do not carry the SESSION cookie value.
func (b *Backend) RequireSession(value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionCookie = value
}

// Push merges u into the stored job and emits it on the job's stream.
func (b *Backend) Push(id int64, u model.JobUpdate) {
	b.mu.Lock()
	if j, ok := b.jobs[id]; ok {
		merged := j.Merge(u)
		b.jobs[id] = &merged
	}
	ch := b.streamLocked(id)
	b.mu.Unlock()

	payload, _ := json.Marshal(u)
	ch <- streamMsg{payload: payload}
}

// PushRaw emits an arbitrary data payload without touching the stored job.
func (b *Backend) PushRaw(id int64, data string) {
	b.mu.Lock()
	ch := b.streamLocked(id)
	b.mu.Unlock()

	ch <- streamMsg{payload: []byte(data)}
}

// CloseStream ends the job's stream from the server side.
func (b *Backend) CloseStream(id int64) {
	b.mu.Lock()
	ch := b.streamLocked(id)
	b.mu.Unlock()

	ch <- streamMsg{close: true}
}

func (b *Backend) streamLocked(id int64) chan streamMsg {
	ch, ok := b.streams[id]
	if !ok {
		ch = make(chan streamMsg, 64)
		b.streams[id] = ch
	}
	return ch
}

func (b *Backend) track(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		b.calls[c.Path()]++
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) csrf(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		requireCSRF, session := b.requireCSRF, b.sessionCookie
		b.mu.Unlock()

		if session != "" {
			ck, err := c.Cookie("SESSION")
			if err != nil || ck.Value != session {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "not authenticated"})
			}
		}

		if c.Request().Method == http.MethodGet {
			c.SetCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: CSRFToken, Path: "/"})
			return next(c)
		}

		if requireCSRF && c.Request().Header.Get("X-XSRF-TOKEN") != CSRFToken {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "invalid csrf token"})
		}
		return next(c)
	}
}

func (b *Backend) handleTrigger(c echo.Context) error {
	var jobType model.JobType
	for _, jt := range model.JobTypes {
		if jt.Segment() == c.Param("segment") {
			jobType = jt
		}
	}
	if jobType == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "no such sync"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.triggerErr != nil {
		return c.JSON(b.triggerErr.status, map[string]string{"message": b.triggerErr.msg})
	}

	for _, j := range b.jobs {
		if !j.Status.IsActive() {
			continue
		}
		if j.JobType == model.JobTypeFullSync || jobType == model.JobTypeFullSync || j.JobType == jobType {
			return c.JSON(http.StatusConflict, map[string]string{
				"message": fmt.Sprintf("A %s sync job is already running (job ID: %d)", j.JobType.Display(), j.ID),
			})
		}
	}

	job := model.SyncJob{
		ID:             b.nextID,
		JobType:        jobType,
		JobTypeDisplay: jobType.Display(),
		Status:         model.JobStatusPending,
		TriggeredBy:    model.TriggerManual,
	}
	if s := c.QueryParam("season"); s != "" {
		season, err := strconv.Atoi(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid season"})
		}
		job.Season = &season
	}

	b.nextID++
	b.jobs[job.ID] = &job
	b.order = append(b.order, job.ID)

	return c.JSON(http.StatusOK, job)
}

func (b *Backend) handleActive(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.SyncJob, 0)
	for i := len(b.order) - 1; i >= 0; i-- {
		if j := b.jobs[b.order[i]]; j.Status.IsActive() {
			out = append(out, *j)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) handleRecent(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.SyncJob, 0)
	for i := len(b.order) - 1; i >= 0 && len(out) < limit; i-- {
		if j := b.jobs[b.order[i]]; j.Status.IsTerminal() {
			out = append(out, *j)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) handleGetJob(c echo.Context) error {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.getJobErr != nil {
		return c.JSON(b.getJobErr.status, map[string]string{"message": b.getJobErr.msg})
	}

	j, ok := b.jobs[id]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "SyncJob not found"})
	}
	return c.JSON(http.StatusOK, j)
}

func (b *Backend) handleCancel(c echo.Context) error {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	b.mu.Lock()
	j, ok := b.jobs[id]
	if !ok {
		b.mu.Unlock()
		return c.JSON(http.StatusNotFound, map[string]string{"message": "SyncJob not found"})
	}
	if !j.Status.IsActive() {
		b.mu.Unlock()
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Can only cancel pending or running jobs"})
	}
	j.Status = model.JobStatusCancelled
	out := j.Clone()
	b.mu.Unlock()

	b.Push(id, model.JobUpdate{Status: new(model.JobStatusCancelled)})
	b.CloseStream(id)

	return c.JSON(http.StatusOK, out)
}

func (b *Backend) handleStream(c echo.Context) error {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	b.mu.Lock()
	status := b.streamStatus
	j, ok := b.jobs[id]
	var initial []byte
	if ok {
		initial, _ = json.Marshal(j)
	}
	ch := b.streamLocked(id)
	b.mu.Unlock()

	if status != 0 {
		return c.JSON(status, map[string]string{"message": "stream unavailable"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "SyncJob not found"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.WriteHeader(http.StatusOK)

	write := func(data []byte) {
		_, _ = fmt.Fprintf(res, "event: progress\ndata: %s\n\n", data)
		res.Flush()
	}
	write(initial)

	for {
		select {
		case msg, open := <-ch:
			if !open || msg.close {
				return nil
			}
			write(msg.payload)
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func (b *Backend) handleFreshness(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, b.freshness)
}

func (b *Backend) handleSeasons(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.seasons
	if out == nil {
		out = []model.SeasonData{}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) handleAvailable(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, b.available)
}

func (b *Backend) handleDeleteSeason(c echo.Context) error {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid season"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.seasons {
		if s.Season != season {
			continue
		}
		if s.IsCurrent {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Cannot delete current season data"})
		}
		b.seasons = append(b.seasons[:i], b.seasons[i+1:]...)
		break
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "season": strconv.Itoa(season)})
}
