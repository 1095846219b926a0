package purchase

import (
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/learnhubdev/learnhub/core/course"
)

func item(id string, title string, price int64, status string, purchased bool) CheckoutItem {
	it := CheckoutItem{CourseID: id, Purchased: purchased}
	if title != "" {
		it.Title = sql.NullString{String: title, Valid: true}
		it.Price = sql.NullInt64{Int64: price, Valid: true}
		it.Status = sql.NullString{String: status, Valid: true}
	}
	return it
}

func TestValidateItems(t *testing.T) {
	tests := []struct {
		name      string
		items     []CheckoutItem
		wantLines int
		wantMsgs  []string
	}{
		{
			name: "all sellable",
			items: []CheckoutItem{
				item("c1", "A", 10, course.StatusPublished, false),
				item("c2", "B", 5, course.StatusPublished, false),
			},
			wantLines: 2,
		},
		{
			name: "one unpublished fails the whole cart by name",
			items: []CheckoutItem{
				item("c1", "A", 10, course.StatusPublished, false),
				item("c2", "B", 5, course.StatusDraft, false),
			},
			wantMsgs: []string{`"B" is no longer available`},
		},
		{
			name: "dangling course reference",
			items: []CheckoutItem{
				item("c1", "", 0, "", false),
			},
			wantMsgs: []string{"Invalid course found in cart"},
		},
		{
			name: "already owned course",
			items: []CheckoutItem{
				item("c1", "A", 10, course.StatusPublished, true),
			},
			wantMsgs: []string{`"A" is already purchased`},
		},
		{
			name: "every problem reported at once",
			items: []CheckoutItem{
				item("c1", "", 0, "", false),
				item("c2", "B", 5, course.StatusDraft, false),
				item("c3", "C", 7, course.StatusPublished, true),
			},
			wantMsgs: []string{
				"Invalid course found in cart",
				`"B" is no longer available`,
				`"C" is already purchased`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, msgs := validateItems(tt.items)

			if diff := cmp.Diff(tt.wantMsgs, msgs); diff != "" {
				t.Fatalf("messages mismatch (-want +got):\n%s", diff)
			}

			if len(tt.wantMsgs) > 0 {
				return
			}
			if len(lines) != tt.wantLines {
				t.Fatalf("expected %d lines, got %d", tt.wantLines, len(lines))
			}
		})
	}
}

func TestValidateItemsPriceInCents(t *testing.T) {
	lines, msgs := validateItems([]CheckoutItem{
		item("c1", "A", 10, course.StatusPublished, false),
	})
	if len(msgs) != 0 {
		t.Fatalf("unexpected messages: %v", msgs)
	}
	if lines[0].UnitAmount != 1000 {
		t.Fatalf("expected 1000 cents, got %d", lines[0].UnitAmount)
	}
}
