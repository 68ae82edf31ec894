package api

import (
	"context"
	"fmt"
	"net/http"

	"statsync/internal/model"
)

// Freshness fetches the per-category staleness snapshot. Callers replace
// whatever they held before; the snapshot is never merged.
func (c *Client) Freshness(ctx context.Context) (model.FreshnessList, error) {
	var list model.FreshnessList
	err := c.do(ctx, http.MethodGet, "/data-freshness", nil, &list)
	return list, err
}

func (c *Client) SyncedSeasons(ctx context.Context) ([]model.SeasonData, error) {
	var seasons []model.SeasonData
	err := c.do(ctx, http.MethodGet, "/seasons/synced", nil, &seasons)
	return seasons, err
}

func (c *Client) AvailableSeasons(ctx context.Context) ([]int, error) {
	var seasons []int
	err := c.do(ctx, http.MethodGet, "/seasons/available", nil, &seasons)
	return seasons, err
}

func (c *Client) DeleteSeason(ctx context.Context, season int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/seasons/%d", season), nil, nil)
}
