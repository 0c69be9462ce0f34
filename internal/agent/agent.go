// Package agent is the boundary to the browser-extraction sidecar. The
// core never renders or parses pages itself; it asks the agent for raw
// candidates and interprets the restriction signals the agent surfaces.
package agent

import (
	"context"
	"errors"

	"github.com/SergeOin/titan/internal/domain"
)

// Anti-automation sentinels. These are never retried within a cycle; the
// pacing controller reacts to them instead.
var (
	// ErrRestricted indicates the platform challenged or limited the
	// session (checkpoint, verification prompt).
	ErrRestricted = errors.New("platform restriction detected")
	// ErrCaptcha indicates an explicit CAPTCHA challenge.
	ErrCaptcha = errors.New("captcha challenge detected")
)

// Agent produces raw candidate posts for one keyword. Implementations may
// return fewer than limit and must respect the context deadline.
type Agent interface {
	Fetch(ctx context.Context, keyword string, limit int) ([]domain.CandidatePost, error)
}

// StaticAgent serves a fixed candidate list, for tests and dry runs.
type StaticAgent struct {
	Posts []domain.CandidatePost
	Err   error
}

// Fetch implements Agent.
func (a *StaticAgent) Fetch(_ context.Context, keyword string, limit int) ([]domain.CandidatePost, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	out := make([]domain.CandidatePost, 0, limit)
	for _, p := range a.Posts {
		if len(out) >= limit {
			break
		}
		p.SourceKeyword = keyword
		out = append(out, p)
	}
	return out, nil
}
