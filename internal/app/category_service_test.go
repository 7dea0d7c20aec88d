package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/category"
)

func TestCategoryService_PlaceUsesExistingGroup(t *testing.T) {
	h := newHarness(t, 3)
	h.platform.addGroup("G-lib", "🧩 Library", 1, "a", "b")
	h.platform.addChannel("new", "new", "")

	g, err := h.categories.Place(context.Background(), "new", "Library", false, 0)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if g.ID != "G-lib" {
		t.Errorf("expected G-lib, got %s", g.ID)
	}
	if h.platform.clones != 0 {
		t.Errorf("expected no group to be created, got %d", h.platform.clones)
	}
	if got := h.platform.groupOf("new"); got != "🧩 Library" {
		t.Errorf("channel landed in %q", got)
	}
}

func TestCategoryService_PlaceCreatesOverflowGroup(t *testing.T) {
	h := newHarness(t, 2)
	h.platform.addGroup("G-lib", "🧩 Library", 1, "a", "b")
	h.platform.addChannel("new", "new", "")

	g, err := h.categories.Place(context.Background(), "new", "Library", false, 0)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if g.ID == "G-lib" || g.Name != "🧩 Library" {
		t.Errorf("expected a new Library group, got %+v", g)
	}
	want := []string{"Puzzles", "🧩 Library", "🧩 Library", "Solved"}
	if diff := cmp.Diff(want, h.platform.groupNames()); diff != "" {
		t.Errorf("group listing mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryService_FiftyFirstChannelOverflows(t *testing.T) {
	h := newHarness(t, category.DefaultCapacity)
	members := make([]string, category.DefaultCapacity)
	for i := range members {
		members[i] = fmt.Sprintf("c%d", i)
	}
	h.platform.addGroup("G-lib", "🧩 Library", 1, members...)
	h.platform.addChannel("c50", "c50", "")

	g, err := h.categories.Place(context.Background(), "c50", "Library", false, 0)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if g.ID == "G-lib" {
		t.Fatal("expected the 51st channel to land in a new group")
	}
	groups, err := h.platform.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	byID := make(map[string][]string)
	for _, grp := range groups {
		byID[grp.ID] = grp.MemberChannels
	}
	if diff := cmp.Diff(members, byID["G-lib"]); diff != "" {
		t.Errorf("original group should keep its %d channels (-want +got):\n%s", category.DefaultCapacity, diff)
	}
	if diff := cmp.Diff([]string{"c50"}, byID[g.ID]); diff != "" {
		t.Errorf("overflow group members mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryService_ArchiveOverflowStartsAfterRoot(t *testing.T) {
	h := newHarness(t, 50)
	h.platform.addChannel("done", "done", "")

	g, err := h.categories.Place(context.Background(), "done", "Museum", true, 0)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if g.Name != "🏁 Solved from: Museum" {
		t.Errorf("unexpected archive group name %q", g.Name)
	}
	want := []string{"Puzzles", "Solved", "🏁 Solved from: Museum"}
	if diff := cmp.Diff(want, h.platform.groupNames()); diff != "" {
		t.Errorf("group listing mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryService_PlaceKeepsChannelInFullMatchingGroup(t *testing.T) {
	h := newHarness(t, 2)
	h.platform.addGroup("G-lib", "🧩 Library", 1, "a", "b")

	g, err := h.categories.Place(context.Background(), "b", "Library", false, 0)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if g.ID != "G-lib" || h.platform.clones != 0 {
		t.Errorf("expected to stay in G-lib without cloning, got %s (%d clones)", g.ID, h.platform.clones)
	}
}

func TestCategoryService_CloneFailure(t *testing.T) {
	h := newHarness(t, 1)
	h.platform.addGroup("G-lib", "🧩 Library", 1, "a")
	h.platform.addChannel("new", "new", "")
	h.platform.cloneErr = errors.New("Missing Permissions")

	_, err := h.categories.Place(context.Background(), "new", "Library", false, 0)
	if !errors.Is(err, apperr.ErrGroupCreateFailed) {
		t.Fatalf("expected group create failure, got %v", err)
	}
}

func TestCategoryService_PlaceRequiresRound(t *testing.T) {
	h := newHarness(t, 1)
	_, err := h.categories.Place(context.Background(), "x", "", false, 0)
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCategoryService_ConcurrentPlacementsRespectCapacity(t *testing.T) {
	const limit, channels = 3, 10
	h := newHarness(t, limit)
	for i := 0; i < channels; i++ {
		h.platform.addChannel(fmt.Sprintf("c%d", i), "p", "")
	}

	var wg sync.WaitGroup
	errs := make(chan error, channels)
	for i := 0; i < channels; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.categories.Place(context.Background(), fmt.Sprintf("c%d", i), "Library", false, 0)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Place failed: %v", err)
		}
	}

	groups, err := h.categories.Groups(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	libraryGroups := 0
	for _, g := range groups {
		if !g.Matches("Library", category.ActiveRound) {
			continue
		}
		libraryGroups++
		if g.Count() > limit {
			t.Errorf("group %s holds %d channels, limit %d", g.ID, g.Count(), limit)
		}
	}
	if libraryGroups != 4 {
		t.Errorf("expected 4 Library groups, got %d", libraryGroups)
	}
}

func TestCategoryService_PruneIfEmpty(t *testing.T) {
	h := newHarness(t, 50)
	h.platform.addGroup("G-empty", "🧩 Library", 1)
	h.platform.addGroup("G-busy", "🧩 Museum", 2, "a")
	ctx := context.Background()

	tests := []struct {
		name    string
		groupID string
		round   string
		want    bool
	}{
		{"root is permanent", activeRootID, "", false},
		{"busy group kept", "G-busy", "Museum", false},
		{"empty group deleted", "G-empty", "Library", true},
		{"unknown group", "G-nope", "Library", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.categories.PruneIfEmpty(ctx, tt.groupID, tt.round, false)
			if err != nil {
				t.Fatalf("PruneIfEmpty failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("PruneIfEmpty = %v, want %v", got, tt.want)
			}
		})
	}
	if diff := cmp.Diff([]string{"🧩 Library"}, h.platform.deletedGroups); diff != "" {
		t.Errorf("deleted groups mismatch (-want +got):\n%s", diff)
	}
}
