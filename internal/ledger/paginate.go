package ledger

import (
	"sort"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// firstPageCursor is accepted as an explicit "start of list" cursor.
const firstPageCursor = "first"

// Paginate cuts one page out of items, which must already be in feed order
// (newest first). The cursor is the id of the last item of the previous page;
// a cursor that no longer exists restarts from the beginning of the list.
func Paginate(items []dto.ActivityItem, cursor string, limit int) dto.ActivityPage {
	limit = NormalizeLimit(limit)

	start := 0
	if cursor != "" && cursor != firstPageCursor {
		for i, item := range items {
			if item.ID == cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	page := dto.ActivityPage{Items: make([]dto.ActivityItem, 0, end-start)}
	if start < end {
		page.Items = append(page.Items, items[start:end]...)
	}

	page.HasMore = start+limit < len(items)
	if page.HasMore {
		next := page.Items[len(page.Items)-1].ID
		page.NextCursor = &next
	}
	return page
}

// sortFeed orders items newest first, breaking date ties by descending id so
// that the in-memory and Postgres stores agree on page boundaries.
func sortFeed(items []dto.ActivityItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].ID > items[j].ID
	})
}
