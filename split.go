package lasprep

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// Split names a dataset partition.
type Split string

// Dataset partitions, in processing order.
const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// Splits lists every partition in the order groups are processed.
var Splits = []Split{SplitTrain, SplitVal, SplitTest}

// Assigner partitions tiles into train, val and test groups. The test
// fraction is whatever remains after train and val.
type Assigner struct {
	TrainFrac float64
	ValFrac   float64

	rand *rand.Rand
	seed int64
}

// AssignerOption is a functional option for NewAssigner.
type AssignerOption func(a *Assigner)

// OptAssignerSeed fixes the seed of the shuffle so assignments can be
// reproduced.
func OptAssignerSeed(seed int64) AssignerOption {
	return func(a *Assigner) {
		a.seed = seed
		a.rand = rand.New(rand.NewSource(seed))
	}
}

// OptAssignerRand makes the assigner draw from r.
func OptAssignerRand(r *rand.Rand) AssignerOption {
	return func(a *Assigner) {
		a.rand = r
		a.seed = 0
	}
}

// NewAssigner returns an Assigner for the given fractions. Without options
// the shuffle uses a freshly seeded source; Seed reports which.
func NewAssigner(trainFrac, valFrac float64, opts ...AssignerOption) (*Assigner, error) {
	if trainFrac < 0 || trainFrac > 1 {
		return nil, errors.Errorf("train fraction must be between 0 and 1, got %v", trainFrac)
	}
	if valFrac < 0 || valFrac > 1 {
		return nil, errors.Errorf("val fraction must be between 0 and 1, got %v", valFrac)
	}
	if trainFrac+valFrac > 1 {
		return nil, errors.Errorf("train and val fractions sum to %v, more than 1", trainFrac+valFrac)
	}
	a := &Assigner{
		TrainFrac: trainFrac,
		ValFrac:   valFrac,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rand == nil {
		a.seed = time.Now().UnixNano()
		a.rand = rand.New(rand.NewSource(a.seed))
	}
	return a, nil
}

// Seed returns the seed of the assigner's source, or 0 when the source was
// given with OptAssignerRand and its seed is unknown.
func (a *Assigner) Seed() int64 { return a.seed }

// Assign shuffles a copy of paths once and cuts it into contiguous groups of
// int(TrainFrac*n) and int(ValFrac*n) paths, test taking the rest. paths is
// not modified.
func (a *Assigner) Assign(paths []string) *Assignment {
	shuffled := make([]string, len(paths))
	copy(shuffled, paths)
	a.rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	nTrain := int(a.TrainFrac * float64(n))
	nVal := int(a.ValFrac * float64(n))
	if nTrain+nVal > n {
		nVal = n - nTrain
	}

	return &Assignment{
		groups: map[Split][]string{
			SplitTrain: shuffled[:nTrain],
			SplitVal:   shuffled[nTrain : nTrain+nVal],
			SplitTest:  shuffled[nTrain+nVal:],
		},
	}
}

// Assignment is the result of Assigner.Assign.
type Assignment struct {
	groups map[Split][]string
}

// Group returns the paths assigned to split.
func (a *Assignment) Group(split Split) []string {
	return a.groups[split]
}

// Len returns the total number of assigned paths.
func (a *Assignment) Len() int {
	n := 0
	for _, g := range a.groups {
		n += len(g)
	}
	return n
}

// Each calls fn for train, val and test in that order, stopping at the first
// error.
func (a *Assignment) Each(fn func(split Split, paths []string) error) error {
	for _, s := range Splits {
		if err := fn(s, a.groups[s]); err != nil {
			return err
		}
	}
	return nil
}

// SplitOf returns the split path was assigned to.
func (a *Assignment) SplitOf(path string) (Split, bool) {
	for _, s := range Splits {
		for _, p := range a.groups[s] {
			if p == path {
				return s, true
			}
		}
	}
	return "", false
}
