package comments

// Tree utilities over the comment forest. All transforms are persistent:
// they return a new forest with shallow-copied nodes along every rebuilt
// path, so a previously captured forest value remains a valid snapshot.

// Walk applies visit to every node in pre-order and rebuilds the forest
// from the results. The visitor may return the node unchanged, a
// replacement, or nil to drop the node (and its subtree). Replies of the
// returned node are walked, so a replacement's children are visited too.
func Walk(forest []*Comment, visit func(*Comment) *Comment) []*Comment {
	out := make([]*Comment, 0, len(forest))
	for _, c := range forest {
		next := visit(c)
		if next == nil {
			continue
		}
		cp := next.clone()
		cp.Replies = Walk(next.Replies, visit)
		out = append(out, cp)
	}
	return out
}

// Find returns the first node with the given ID, searching depth-first
// through every node's replies. Returns nil if absent. The returned node
// is shared with the forest and must not be mutated by callers.
func Find(forest []*Comment, id ID) *Comment {
	for _, c := range forest {
		if c.ID == id {
			return c
		}
		if found := Find(c.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// Contains reports whether a node with the given ID exists at any depth.
func Contains(forest []*Comment, id ID) bool {
	return Find(forest, id) != nil
}

// Replace swaps the node matching updated.ID, at any depth, for updated.
// Returns the new forest and whether a match was found; the forest is
// returned unchanged (and unfound) when the ID is absent.
func Replace(forest []*Comment, updated *Comment) ([]*Comment, bool) {
	if !Contains(forest, updated.ID) {
		return forest, false
	}
	next := Walk(forest, func(c *Comment) *Comment {
		if c.ID == updated.ID {
			return updated
		}
		return c
	})
	return next, true
}

// ReplaceID swaps the node matching oldID for updated, which may carry a
// different (reconciled) ID. Used to promote a pending comment to its
// server-confirmed form.
func ReplaceID(forest []*Comment, oldID ID, updated *Comment) ([]*Comment, bool) {
	if !Contains(forest, oldID) {
		return forest, false
	}
	next := Walk(forest, func(c *Comment) *Comment {
		if c.ID == oldID {
			return updated
		}
		return c
	})
	return next, true
}

// AddReply appends reply to the node matching parentID, at any depth, and
// bumps its child count. A missing parent is a recoverable no-op: the
// forest is returned unchanged with ok=false.
func AddReply(forest []*Comment, parentID ID, reply *Comment) ([]*Comment, bool) {
	if !Contains(forest, parentID) {
		return forest, false
	}
	next := Walk(forest, func(c *Comment) *Comment {
		if c.ID != parentID {
			return c
		}
		cp := c.clone()
		cp.Replies = append(cp.Replies, reply)
		cp.ChildCount++
		return cp
	})
	return next, true
}

// Remove deletes the node with the given ID, at any depth, decrementing
// the parent's child count. Returns the removed node, or nil if absent.
func Remove(forest []*Comment, id ID) ([]*Comment, *Comment) {
	removed := Find(forest, id)
	if removed == nil {
		return forest, nil
	}
	next := Walk(forest, func(c *Comment) *Comment {
		if c.ID == id {
			return nil
		}
		if hasChild(c, id) {
			cp := c.clone()
			if cp.ChildCount > 0 {
				cp.ChildCount--
			}
			return cp
		}
		return c
	})
	return next, removed
}

func hasChild(c *Comment, id ID) bool {
	for _, r := range c.Replies {
		if r.ID == id {
			return true
		}
	}
	return false
}

// MergeReplies appends the given replies to the node matching parentID,
// skipping any reply whose ID is already present under that parent, and
// records the server-declared total. Used when a page of replies arrives.
func MergeReplies(forest []*Comment, parentID ID, replies []*Comment, total int) ([]*Comment, bool) {
	if !Contains(forest, parentID) {
		return forest, false
	}
	next := Walk(forest, func(c *Comment) *Comment {
		if c.ID != parentID {
			return c
		}
		cp := c.clone()
		seen := make(map[ID]struct{}, len(cp.Replies))
		for _, r := range cp.Replies {
			seen[r.ID] = struct{}{}
		}
		for _, r := range replies {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			cp.Replies = append(cp.Replies, r)
		}
		if total > cp.ChildCount {
			cp.ChildCount = total
		}
		if len(cp.Replies) > cp.ChildCount {
			cp.ChildCount = len(cp.Replies)
		}
		return cp
	})
	return next, true
}

// Locate returns the parent ID and sibling index of the node with the
// given ID. Top-level nodes report a zero parent ID and their index in the
// root list. ok is false when the ID is absent.
func Locate(forest []*Comment, id ID) (parent ID, index int, ok bool) {
	for i, c := range forest {
		if c.ID == id {
			return ID{}, i, true
		}
	}
	var search func(nodes []*Comment) (ID, int, bool)
	search = func(nodes []*Comment) (ID, int, bool) {
		for _, c := range nodes {
			for i, r := range c.Replies {
				if r.ID == id {
					return c.ID, i, true
				}
			}
			if p, i, found := search(c.Replies); found {
				return p, i, found
			}
		}
		return ID{}, 0, false
	}
	return search(forest)
}

// InsertAt places node under the given parent at the given sibling index,
// restoring the parent's child count. A zero parent ID inserts into the
// root list. Used to undo an optimistic removal.
func InsertAt(forest []*Comment, parentID ID, index int, node *Comment) ([]*Comment, bool) {
	if parentID.IsZero() {
		if index < 0 || index > len(forest) {
			index = len(forest)
		}
		out := make([]*Comment, 0, len(forest)+1)
		out = append(out, forest[:index]...)
		out = append(out, node)
		out = append(out, forest[index:]...)
		return out, true
	}
	if !Contains(forest, parentID) {
		return forest, false
	}
	next := Walk(forest, func(c *Comment) *Comment {
		if c.ID != parentID {
			return c
		}
		cp := c.clone()
		i := index
		if i < 0 || i > len(cp.Replies) {
			i = len(cp.Replies)
		}
		cp.Replies = append(cp.Replies[:i:i], append([]*Comment{node}, cp.Replies[i:]...)...)
		cp.ChildCount++
		return cp
	})
	return next, true
}

// FlatComment is a comment with display metadata for a flattened thread.
type FlatComment struct {
	*Comment
	Depth       int
	IsCollapsed bool
	IsOP        bool
	// HiddenCount is the number of descendants folded under a collapsed node.
	HiddenCount int
	// UnloadedCount is how many children the server declares beyond what is
	// loaded, for a "load N more replies" affordance.
	UnloadedCount int
}

// CollapseState tracks collapsed comment IDs.
type CollapseState map[ID]bool

// Flatten converts the nested forest into a flat list for display.
func Flatten(forest []*Comment, opAuthorID int64, cs CollapseState) []FlatComment {
	var result []FlatComment

	// walk returns the total descendant count for this subtree.
	var walk func(c *Comment, depth int) int
	walk = func(c *Comment, depth int) int {
		idx := len(result)
		result = append(result, FlatComment{
			Comment:       c,
			Depth:         depth,
			IsCollapsed:   cs[c.ID],
			IsOP:          opAuthorID != 0 && c.Author.ID == opAuthorID,
			UnloadedCount: c.ChildCount - len(c.Replies),
		})

		descendants := 0
		if !cs[c.ID] {
			for _, r := range c.Replies {
				descendants += 1 + walk(r, depth+1)
			}
		} else {
			descendants = c.ChildCount
		}

		result[idx].HiddenCount = descendants
		return descendants
	}

	for _, c := range forest {
		walk(c, 0)
	}
	return result
}

// FindParentIndex returns the index of the parent comment in a flat list.
func FindParentIndex(flat []FlatComment, currentIdx int) int {
	if currentIdx < 0 || currentIdx >= len(flat) {
		return -1
	}
	depth := flat[currentIdx].Depth
	for i := currentIdx - 1; i >= 0; i-- {
		if flat[i].Depth < depth {
			return i
		}
	}
	return -1
}

// FindNextSiblingIndex returns the index of the next comment at the same depth.
func FindNextSiblingIndex(flat []FlatComment, currentIdx int) int {
	if currentIdx < 0 || currentIdx >= len(flat) {
		return -1
	}
	depth := flat[currentIdx].Depth
	for i := currentIdx + 1; i < len(flat); i++ {
		if flat[i].Depth < depth {
			return -1 // went up in tree, no more siblings
		}
		if flat[i].Depth == depth {
			return i
		}
	}
	return -1
}
