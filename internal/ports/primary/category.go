package primary

import (
	"context"

	"github.com/example/puzzbot/internal/core/category"
)

// CategoryService defines the primary port for the capacity manager.
type CategoryService interface {
	// ResolveGroup returns a group for round with room for one more channel,
	// creating an overflow group when every existing one is full.
	ResolveGroup(ctx context.Context, round string, archive bool) (*category.Group, error)

	// Place resolves a group and moves channelID into it at position, as one
	// step with respect to other placements for the same round.
	Place(ctx context.Context, channelID, round string, archive bool, position int) (*category.Group, error)

	// PruneIfEmpty deletes a non-root group that holds no channels.
	PruneIfEmpty(ctx context.Context, groupID, round string, archive bool) (bool, error)

	// Locate returns the group currently holding channelID, or nil.
	Locate(ctx context.Context, channelID string) (*category.Group, error)

	// Groups returns the annotated group listing.
	Groups(ctx context.Context) ([]category.Group, error)
}

// CleanupService defines the primary port for removing orphaned workspaces.
type CleanupService interface {
	// Cleanup reports workspaces with no puzzle record. With the confirmation
	// phrase it deletes them and empty non-root groups.
	Cleanup(ctx context.Context, confirmation string) (*CleanupReport, error)
}

// CleanupConfirmation must be passed to Cleanup to delete anything.
const CleanupConfirmation = "no really"

// CleanupReport summarizes a cleanup run.
type CleanupReport struct {
	Orphans       []string // channel ids
	DeletedGroups []string
	Deleted       bool
}
