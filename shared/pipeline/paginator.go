package pipeline

import (
	"context"
	"fmt"
)

// PageFunc fetches the page identified by cursor; the first page has an
// empty cursor.
type PageFunc func(ctx context.Context, cursor string) (Page, error)

// Paginate follows next cursors until the listing is exhausted or limit IDs
// were collected (limit <= 0 means no limit). Every call starts from the
// first page. Page failures are not retried here: a missing page would
// silently break ordering and completeness, so the whole listing fails with
// an *UpstreamError naming target.
func Paginate(ctx context.Context, target string, fetch PageFunc, limit int) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	cursor := ""

	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &UpstreamError{Op: fmt.Sprintf("list page %d of", pageNum), Target: target, Err: err}
		}
		ids = append(ids, page.IDs...)

		if limit > 0 && len(ids) >= limit {
			return ids[:limit], nil
		}
		if page.NextCursor == "" {
			return ids, nil
		}
		if seen[page.NextCursor] {
			return nil, &UpstreamError{Op: fmt.Sprintf("list page %d of", pageNum), Target: target, Err: ErrCursorLoop}
		}
		seen[page.NextCursor] = true
		cursor = page.NextCursor
	}
}

// Dedupe drops repeated IDs, keeping the first occurrence of each.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
