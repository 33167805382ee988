package azdo

import (
	"context"
	"fmt"
)

// Snapshot is the read-only pull-request context the review reports render.
type Snapshot struct {
	PR        *PullRequest
	Iteration Iteration
	Changes   []ChangeEntry
	Commits   []Commit
	Threads   []Thread
}

// FetchSnapshot gathers the full review context for one pull request:
// detail, latest iteration, its changes, commits, and comment threads.
// The reads run sequentially; any failure aborts the snapshot.
func (c *Client) FetchSnapshot(ctx context.Context, prID int) (*Snapshot, error) {
	pr, err := c.FetchPullRequest(ctx, prID)
	if err != nil {
		return nil, err
	}

	iterations, err := c.FetchIterations(ctx, prID)
	if err != nil {
		return nil, err
	}
	latest, ok := LatestIteration(iterations)
	if !ok {
		return nil, fmt.Errorf("pull request %d has no iterations", prID)
	}

	changes, err := c.FetchIterationChanges(ctx, prID, latest.ID)
	if err != nil {
		return nil, err
	}

	commits, err := c.FetchCommits(ctx, prID)
	if err != nil {
		return nil, err
	}

	threads, err := c.FetchThreads(ctx, prID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		PR:        pr,
		Iteration: latest,
		Changes:   changes,
		Commits:   commits,
		Threads:   threads,
	}, nil
}
