package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/altinukshini/gha-triage/internal/model"
)

// DefaultLabelColor is used for labels created on demand.
const DefaultLabelColor = "FF0000"

const maxLabelPages = 10

func (c *Client) ListLabels(ctx context.Context) ([]model.Label, error) {
	var out []model.Label
	for page := 1; page <= maxLabelPages; page++ {
		var batch []model.Label
		if err := c.Get(ctx, fmt.Sprintf("labels?per_page=100&page=%d", page), &batch); err != nil {
			return nil, wrapErr("list labels", err)
		}
		out = append(out, batch...)
		if len(batch) < 100 {
			break
		}
	}
	return out, nil
}

func (c *Client) CreateLabel(ctx context.Context, label model.Label) error {
	if label.Color == "" {
		label.Color = DefaultLabelColor
	}
	if err := c.Post(ctx, "labels", label, nil); err != nil {
		return wrapErr(fmt.Sprintf("create label %q", label.Name), err)
	}
	return nil
}

// EnsureLabels creates the names missing from the repository and returns
// the ones it created. Label names compare case-insensitively, as on GitHub.
func (c *Client) EnsureLabels(ctx context.Context, names []string) ([]string, error) {
	existing, err := c.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, l := range existing {
		have[strings.ToLower(l.Name)] = true
	}
	var created []string
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || have[key] {
			continue
		}
		if err := c.CreateLabel(ctx, model.Label{Name: name, Color: DefaultLabelColor}); err != nil {
			return created, err
		}
		have[key] = true
		created = append(created, name)
	}
	return created, nil
}
