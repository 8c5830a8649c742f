package domain

import "context"

// MaxDepth caps the parent walk. No real catalogue nests this deep.
const MaxDepth = 64

// ParentLookup returns the parent id of id ("" for a root) and whether id exists.
type ParentLookup func(ctx context.Context, id string) (parentID string, found bool, err error)

// AssertNoCycle rejects making candidateParentID the parent of categoryID when
// categoryID is already an ancestor of the candidate. The walk is iterative and
// bounded; a chain that repeats without reaching categoryID is reported as
// corrupt rather than followed forever.
func AssertNoCycle(ctx context.Context, lookup ParentLookup, categoryID, candidateParentID string) error {
	if candidateParentID == "" {
		return nil
	}
	if candidateParentID == categoryID {
		return ErrSelfParent
	}

	visited := make(map[string]struct{}, 8)
	cur := candidateParentID
	for depth := 0; cur != ""; depth++ {
		if cur == categoryID {
			return ErrCycle
		}
		if _, seen := visited[cur]; seen {
			return ErrCorruptTree
		}
		if depth >= MaxDepth {
			return ErrTreeTooDeep
		}
		visited[cur] = struct{}{}

		parent, found, err := lookup(ctx, cur)
		if err != nil {
			return err
		}
		if !found {
			return ErrParentNotFound
		}
		cur = parent
	}
	return nil
}
