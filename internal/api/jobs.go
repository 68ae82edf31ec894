package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"statsync/internal/model"
)

// Trigger starts a sync job of the given type, optionally scoped to a season,
// and returns the job handle the backend created.
func (c *Client) Trigger(ctx context.Context, jobType model.JobType, season *int) (model.SyncJob, error) {
	var job model.SyncJob

	if !jobType.Valid() {
		return job, &Error{Method: http.MethodPost, Status: http.StatusBadRequest,
			Message: fmt.Sprintf("unknown job type %q", jobType)}
	}

	path := "/ingestion/" + jobType.Segment()
	query := url.Values{}
	if season != nil {
		if !jobType.AcceptsSeason() {
			return job, &Error{Method: http.MethodPost, Path: path, Status: http.StatusBadRequest,
				Message: fmt.Sprintf("%s sync does not take a season", jobType.Display())}
		}
		query.Set("season", strconv.Itoa(*season))
	}

	if err := c.do(ctx, http.MethodPost, path, query, &job); err != nil {
		return job, err
	}

	return job, nil
}

func (c *Client) GetJob(ctx context.Context, id int64) (model.SyncJob, error) {
	var job model.SyncJob
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sync-jobs/%d", id), nil, &job)
	return job, err
}

func (c *Client) Cancel(ctx context.Context, id int64) (model.SyncJob, error) {
	var job model.SyncJob
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sync-jobs/%d/cancel", id), nil, &job)
	return job, err
}

func (c *Client) ActiveJobs(ctx context.Context) ([]model.SyncJob, error) {
	var jobs []model.SyncJob
	err := c.do(ctx, http.MethodGet, "/sync-jobs/active", nil, &jobs)
	return jobs, err
}

func (c *Client) RecentJobs(ctx context.Context, limit int) ([]model.SyncJob, error) {
	var jobs []model.SyncJob
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	err := c.do(ctx, http.MethodGet, "/sync-jobs/recent", query, &jobs)
	return jobs, err
}

// OpenStream opens the server-sent-events progress channel for one job. The
// caller owns the returned body; cancelling ctx tears the connection down.
func (c *Client) OpenStream(ctx context.Context, id int64) (io.ReadCloser, error) {
	path := fmt.Sprintf("/sync-jobs/%d/stream", id)

	resp, err := c.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress stream: %w", err)
	}

	body := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		msg, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		_ = body.Close()
		return nil, &Error{
			Method:  http.MethodGet,
			Path:    path,
			Status:  resp.StatusCode(),
			Message: errorMessage(resp.Header().Get("Content-Type"), msg),
		}
	}

	return body, nil
}
