package damsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// DashboardOverview is the headline portion of the dashboard statistics.
type DashboardOverview struct {
	FileCount          int    `json:"fileCount"`
	FolderCount        int    `json:"folderCount"`
	TotalSize          int64  `json:"totalSize"`
	TotalSizeFormatted string `json:"totalSizeFormatted"`
}

// DashboardStats is the /api/stats/dashboard response.
type DashboardStats struct {
	Overview      DashboardOverview `json:"overview"`
	MimeTypes     map[string]int    `json:"mimeTypes,omitempty"`
	RecentUploads []File            `json:"recentUploads,omitempty"`
}

// StorageStats is the /api/stats/storage response.
type StorageStats struct {
	TotalSize          int64            `json:"totalSize"`
	TotalSizeFormatted string           `json:"totalSizeFormatted"`
	FileCount          int              `json:"fileCount"`
	ByMimeType         map[string]int64 `json:"byMimeType,omitempty"`
}

// StatsSnapshot bundles both statistics views, fetched together.
type StatsSnapshot struct {
	Dashboard DashboardStats
	Storage   StorageStats
}

// DashboardStats fetches the dashboard statistics.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.getStats(ctx, "/api/stats/dashboard", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// StorageStats fetches the storage statistics.
func (c *Client) StorageStats(ctx context.Context) (*StorageStats, error) {
	var stats StorageStats
	if err := c.getStats(ctx, "/api/stats/storage", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Stats fetches dashboard and storage statistics concurrently and
// returns them as one snapshot.
func (c *Client) Stats(ctx context.Context) (*StatsSnapshot, error) {
	var snap StatsSnapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getStats(ctx, "/api/stats/dashboard", &snap.Dashboard)
	})
	g.Go(func() error {
		return c.getStats(ctx, "/api/stats/storage", &snap.Storage)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snap, nil
}

func (c *Client) getStats(ctx context.Context, path string, dst any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return err
	}

	env, err := c.do(req)
	if err != nil {
		return err
	}

	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decoding stats: %w", err)
	}
	return nil
}
