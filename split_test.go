package lasprep_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/test"
)

func tilePaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("las/LIDAR_0000-%04d.las.zip", i)
	}
	return paths
}

func TestAssignSizes(t *testing.T) {
	tests := []struct {
		n               int
		train, val, tst int
	}{
		{n: 10, train: 6, val: 2, tst: 2},
		{n: 5, train: 3, val: 1, tst: 1},
		{n: 3, train: 1, val: 0, tst: 2},
		{n: 1, train: 0, val: 0, tst: 1},
		{n: 0},
	}
	for _, tst := range tests {
		a, err := lasprep.NewAssigner(0.6, 0.2, lasprep.OptAssignerSeed(42))
		test.ErrNil(t, err, "NewAssigner")
		asg := a.Assign(tilePaths(tst.n))
		test.MustBe(t, len(asg.Group(lasprep.SplitTrain)), tst.train, fmt.Sprintf("n=%d train", tst.n))
		test.MustBe(t, len(asg.Group(lasprep.SplitVal)), tst.val, fmt.Sprintf("n=%d val", tst.n))
		test.MustBe(t, len(asg.Group(lasprep.SplitTest)), tst.tst, fmt.Sprintf("n=%d test", tst.n))
		test.MustBe(t, asg.Len(), tst.n)
	}
}

func TestAssignPartitions(t *testing.T) {
	paths := tilePaths(10)
	orig := append([]string{}, paths...)
	a, err := lasprep.NewAssigner(0.6, 0.2)
	test.ErrNil(t, err, "NewAssigner")
	asg := a.Assign(paths)

	test.MustBe(t, paths, orig, "input modified")

	var all []string
	seen := make(map[string]lasprep.Split)
	err = asg.Each(func(split lasprep.Split, group []string) error {
		for _, p := range group {
			if prev, ok := seen[p]; ok {
				t.Errorf("%s in both %s and %s", p, prev, split)
			}
			seen[p] = split
			all = append(all, p)
		}
		return nil
	})
	test.ErrNil(t, err, "Each")
	sort.Strings(all)
	test.MustBe(t, all, orig, "groups don't cover the input")

	for p, split := range seen {
		got, ok := asg.SplitOf(p)
		if !ok || got != split {
			t.Errorf("SplitOf(%s) = %s, %v; want %s", p, got, ok, split)
		}
	}
	if _, ok := asg.SplitOf("unknown"); ok {
		t.Error("SplitOf found a path which was never assigned")
	}
}

func TestAssignReproducible(t *testing.T) {
	a1, _ := lasprep.NewAssigner(0.6, 0.2, lasprep.OptAssignerSeed(7))
	a2, _ := lasprep.NewAssigner(0.6, 0.2, lasprep.OptAssignerSeed(7))
	test.MustBe(t, a1.Seed(), int64(7))
	paths := tilePaths(20)
	g1, g2 := a1.Assign(paths), a2.Assign(paths)
	for _, s := range lasprep.Splits {
		test.MustBe(t, g1.Group(s), g2.Group(s), string(s))
	}
}

func TestAssignShuffles(t *testing.T) {
	a, _ := lasprep.NewAssigner(1, 0, lasprep.OptAssignerSeed(8), lasprep.OptAssignerRand(rand.New(rand.NewSource(3))))
	test.MustBe(t, a.Seed(), int64(0), "seed of an injected source")
	paths := tilePaths(50)
	got := a.Assign(paths).Group(lasprep.SplitTrain)
	same := true
	for i := range got {
		if got[i] != paths[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("train group is in input order, expected a shuffle")
	}
}

func TestAssignEachOrder(t *testing.T) {
	a, _ := lasprep.NewAssigner(0.6, 0.2, lasprep.OptAssignerSeed(1))
	var order []lasprep.Split
	_ = a.Assign(tilePaths(10)).Each(func(split lasprep.Split, _ []string) error {
		order = append(order, split)
		return nil
	})
	test.MustBe(t, order, []lasprep.Split{lasprep.SplitTrain, lasprep.SplitVal, lasprep.SplitTest})
}

func TestNewAssignerFractions(t *testing.T) {
	for _, fr := range [][2]float64{{-0.1, 0.2}, {0.6, 1.2}, {0.7, 0.4}} {
		if _, err := lasprep.NewAssigner(fr[0], fr[1]); err == nil {
			t.Errorf("expected error for fractions %v", fr)
		}
	}
	if _, err := lasprep.NewAssigner(0.8, 0.2); err != nil {
		t.Errorf("fractions summing to 1: %v", err)
	}
}
