package sqlite

import (
	"context"
	"testing"

	"github.com/pollsphere/pollsphere/internal/model"
)

func TestAward_OncePerTitleWithBonus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "achiever")

	first := &model.Achievement{UserID: u.ID, Title: "First Poll Creator", BadgeIcon: "🎯", XPBonus: 10}
	awarded, err := db.Award(ctx, first)
	if err != nil {
		t.Fatalf("Award() error = %v", err)
	}
	if !awarded {
		t.Fatal("Award() = false on first award")
	}

	again := &model.Achievement{UserID: u.ID, Title: "First Poll Creator", XPBonus: 10}
	awarded, err = db.Award(ctx, again)
	if err != nil {
		t.Fatalf("Award() repeat error = %v", err)
	}
	if awarded {
		t.Error("Award() = true on repeat, want false")
	}

	got, _ := db.GetUserByID(ctx, u.ID)
	if got.XP != 10 {
		t.Errorf("XP = %d, want 10 (bonus credited once)", got.XP)
	}
}

func TestListByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "achiever")
	other := createTestUser(t, db, "other")

	for _, title := range []string{"A", "B"} {
		if _, err := db.Award(ctx, &model.Achievement{UserID: u.ID, Title: title}); err != nil {
			t.Fatalf("Award(%s): %v", title, err)
		}
	}
	if _, err := db.Award(ctx, &model.Achievement{UserID: other.ID, Title: "A"}); err != nil {
		t.Fatalf("Award(other): %v", err)
	}

	list, err := db.ListByUser(ctx, u.ID, 100)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Title != "B" {
		t.Errorf("first = %q, want most recent (B)", list[0].Title)
	}

	empty, err := db.ListByUser(ctx, "nobody", 100)
	if err != nil {
		t.Fatalf("ListByUser(nobody) error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListByUser(nobody) = %v, want empty non-nil slice", empty)
	}
}
