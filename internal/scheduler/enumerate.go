package scheduler

import (
	"context"

	"github.com/framefeed/framefeed/internal/models"
	"github.com/framefeed/framefeed/internal/remotefs"
)

// EnumerateResult is the outcome of a recursive folder scan.
type EnumerateResult struct {
	// Images holds every image file found under the root, in visit order.
	Images []models.NetworkResource
	// FailedDirs lists directories whose listing failed. Their subtrees
	// were skipped; siblings were still scanned.
	FailedDirs []string
}

// Enumerate walks the folder tree rooted at root breadth-first and collects
// every image file. A listing failure prunes only that directory's subtree.
// Cancellation is checked between directory visits.
func (s *Scheduler) Enumerate(ctx context.Context, root models.NetworkResource) (EnumerateResult, error) {
	var result EnumerateResult

	browser := s.factory.ForServer(root.Server)

	pending := []models.NetworkResource{root}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dir := pending[0]
		pending = pending[1:]

		entries, err := browser.Browse(ctx, dir.Server, dir.Path)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.log.Warnf("listing %q failed, skipping subtree: %v", dir.Path, err)
			result.FailedDirs = append(result.FailedDirs, dir.Path)
			continue
		}

		remotefs.SortResources(entries)
		for _, entry := range entries {
			switch {
			case entry.IsDirectory:
				pending = append(pending, entry)
			case entry.IsImage:
				result.Images = append(result.Images, entry)
			}
		}
	}

	return result, nil
}
