package crosscheck

import (
	"context"
	"math/rand"
	"testing"

	"github.com/cfiminer/miner/pkg/itemset"
)

func TestPaperExampleAgreement(t *testing.T) {
	ctx := context.Background()
	g := New[rune]()
	txs := []itemset.Itemset[rune]{
		itemset.New('A', 'C', 'T', 'W'),
		itemset.New('C', 'D', 'W'),
		itemset.New('A', 'C', 'T', 'W'),
		itemset.New('A', 'C', 'D', 'W'),
		itemset.New('A', 'C', 'D', 'T', 'W'),
		itemset.New('C', 'D', 'T'),
	}
	for _, tx := range txs {
		if err := g.Add(ctx, tx); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := g.Agree(); err != nil {
		t.Fatalf("DIU/MFCI disagreement: %v", err)
	}
}

// Randomised stream: for R permutations of a small transaction
// stream, for every window size W, assert DIU/MFCI agreement and the
// window-bound property after every add/delete.
func TestRandomizedStreamAgreement(t *testing.T) {
	base := []itemset.Itemset[int]{
		itemset.New(1, 2),
		itemset.New(2, 3),
		itemset.New(1, 2, 3),
		itemset.New(3, 4),
		itemset.New(1),
	}
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	const permutations = 8
	for p := 0; p < permutations; p++ {
		stream := append([]itemset.Itemset[int]{}, base...)
		rng.Shuffle(len(stream), func(i, j int) { stream[i], stream[j] = stream[j], stream[i] })

		for w := 1; w <= len(stream); w++ {
			g := New[int]()
			for i, tx := range stream {
				if i >= w {
					if err := g.Delete(ctx, stream[i-w]); err != nil {
						t.Fatalf("perm %d window %d: delete: %v", p, w, err)
					}
				}
				if err := g.Add(ctx, tx); err != nil {
					t.Fatalf("perm %d window %d: add: %v", p, w, err)
				}
				if err := g.Agree(); err != nil {
					t.Fatalf("perm %d window %d step %d: %v", p, w, i, err)
				}
				for _, c := range g.DIU().ClosedItemsets() {
					if s := g.DIU().Support(c); s > w {
						t.Fatalf("perm %d window %d: support(%v)=%d exceeds window", p, w, c.Items(), s)
					}
				}
			}
		}
	}
}
