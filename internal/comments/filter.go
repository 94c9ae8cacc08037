package comments

import "time"

// BountyFilter narrows a bounty thread to open or closed bounties.
type BountyFilter string

const (
	BountyAll    BountyFilter = "ALL"
	BountyOpen   BountyFilter = "OPEN"
	BountyClosed BountyFilter = "CLOSED"
)

// BountyFilterState returns the active bounty filter.
func (s *Store) BountyFilterState() BountyFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bountyFilter
}

// FilteredComments is the derived view of the forest. While a bounty
// filter is active, top-level bounty comments are kept or dropped by the
// open/closed predicate (open = not expired and not yet awarded); other
// kinds pass through regardless of the server-side kind filter.
func (s *Store) FilteredComments() []*Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bountyFilter == BountyAll {
		return s.forest
	}
	now := time.Now()
	out := make([]*Comment, 0, len(s.forest))
	for _, c := range s.forest {
		if c.Kind == KindBounty {
			open := c.Bounty != nil && c.Bounty.Open(now)
			if (s.bountyFilter == BountyOpen) != open {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
