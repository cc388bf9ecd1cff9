package store

import (
	"context"
	"errors"
	"sort"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// ErrNotFound is returned when no result is cached for a recipient
var ErrNotFound = errors.New("result not found")

// Store keeps the latest result per recipient
type Store interface {
	Get(ctx context.Context, recipient string) (*models.ExtractionResult, error)
	Upsert(ctx context.Context, result *models.ExtractionResult) error
	List(ctx context.Context) ([]*models.ExtractionResult, error)
}

// sortNewestFirst orders results by ObservedAt, most recent first
func sortNewestFirst(results []*models.ExtractionResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ObservedAt.After(results[j].ObservedAt)
	})
}
