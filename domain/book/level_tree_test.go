package book

import "testing"

func TestLevelTreeUpsertFindDelete(t *testing.T) {
	tree := newLevelTree()
	lvl := tree.upsert(100)
	if lvl == nil {
		t.Fatal("upsert returned nil level")
	}
	if tree.find(100) != lvl {
		t.Error("find did not return the same level")
	}

	tree.upsert(200)
	if tree.min().price != 100 {
		t.Error("expected min=100")
	}
	if tree.max().price != 200 {
		t.Error("expected max=200")
	}

	if !tree.delete(100) {
		t.Error("delete failed")
	}
	if tree.find(100) != nil {
		t.Error("expected level 100 to be gone")
	}
}

func TestLevelTreeDeleteNonExistent(t *testing.T) {
	tree := newLevelTree()
	if tree.delete(123) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestLevelTreeEmptyMinMax(t *testing.T) {
	tree := newLevelTree()
	if tree.min() != nil || tree.max() != nil {
		t.Error("expected nil min/max on empty tree")
	}
}

func TestLevelTreeUpsertDuplicate(t *testing.T) {
	tree := newLevelTree()
	a := tree.upsert(150)
	b := tree.upsert(150)
	if a != b {
		t.Error("upsert should return the same level for a duplicate price")
	}
	if tree.Len() != 1 {
		t.Errorf("expected size 1, got %d", tree.Len())
	}
}

func TestLevelTreeOrderedWalks(t *testing.T) {
	tree := newLevelTree()
	prices := []int64{500, 100, 300, 200, 400, 250, 450, 50}
	for _, p := range prices {
		tree.upsert(p)
	}

	var asc []int64
	tree.ascend(func(lvl *priceLevel) bool {
		asc = append(asc, lvl.price)
		return true
	})
	for i := 1; i < len(asc); i++ {
		if asc[i-1] >= asc[i] {
			t.Fatalf("ascend out of order: %v", asc)
		}
	}

	var desc []int64
	tree.descend(func(lvl *priceLevel) bool {
		desc = append(desc, lvl.price)
		return true
	})
	for i := 1; i < len(desc); i++ {
		if desc[i-1] <= desc[i] {
			t.Fatalf("descend out of order: %v", desc)
		}
	}

	// Deleting interior and boundary keys keeps the walk consistent.
	tree.delete(50)
	tree.delete(300)
	tree.delete(500)
	var remaining []int64
	tree.ascend(func(lvl *priceLevel) bool {
		remaining = append(remaining, lvl.price)
		return true
	})
	want := []int64{100, 200, 250, 400, 450}
	if len(remaining) != len(want) {
		t.Fatalf("expected %v, got %v", want, remaining)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, remaining)
		}
	}
}
