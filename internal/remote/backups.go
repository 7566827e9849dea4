package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
)

// Backup describes a stored backup as listed by the server.
type Backup struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Client) ListBackups(ctx context.Context, k guard.Kind) ([]Backup, error) {
	code, body, err := c.do(ctx, http.MethodGet, "/api/backups", url.Values{"kind": {k.Name}}, nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, unexpected(http.MethodGet, "/api/backups", code, body)
	}

	var out struct {
		Backups []Backup `json:"backups"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode backups: %w", err)
	}
	return out.Backups, nil
}

// TriggerBackup asks the server to back up every kind now.
func (c *Client) TriggerBackup(ctx context.Context) error {
	code, body, err := c.do(ctx, http.MethodPost, "/api/backups", nil, []byte("{}"))
	if err != nil {
		return err
	}
	if code != http.StatusAccepted && code != http.StatusOK {
		return unexpected(http.MethodPost, "/api/backups", code, body)
	}
	return nil
}

// RestoreBackup replaces the stored snapshot of k with a backup. The write
// guard is bypassed on the server.
func (c *Client) RestoreBackup(ctx context.Context, k guard.Kind, name string) error {
	payload, err := json.Marshal(map[string]string{"kind": k.Name, "filename": name})
	if err != nil {
		return err
	}
	code, body, err := c.do(ctx, http.MethodPost, "/api/restore", nil, payload)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return unexpected(http.MethodPost, "/api/restore", code, body)
	}
	return nil
}
