package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Split names.
const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
)

// Fixed partition parameters shared by train and val.
const (
	ValFraction = 0.2
	SplitSeed   = 42
)

// labelSplit maps a dataset split to the label file it draws from. Train
// and val share one file pool and dictionary.
func labelSplit(split string) (string, error) {
	switch split {
	case SplitTrain, SplitVal:
		return SplitTrain, nil
	case SplitTest:
		return SplitTest, nil
	}
	return "", fmt.Errorf("dataset: unknown split %q", split)
}

// TrainValSplit partitions files with a seeded permutation: the first
// ceil(valFraction·n) permuted entries form val, the rest train. Both halves
// keep permutation order. The same files and seed always give the same
// halves.
func TrainValSplit(files []string, valFraction float64, seed int64) (train, val []string, err error) {
	if valFraction <= 0 || valFraction >= 1 {
		return nil, nil, fmt.Errorf("dataset: val fraction %g not in (0, 1)", valFraction)
	}
	n := len(files)
	if n == 0 {
		return nil, nil, nil
	}
	nVal := int(math.Ceil(valFraction * float64(n)))
	if nVal >= n {
		return nil, nil, fmt.Errorf("dataset: %d files leave no training samples at val fraction %g", n, valFraction)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	val = make([]string, 0, nVal)
	for _, i := range perm[:nVal] {
		val = append(val, files[i])
	}
	train = make([]string, 0, n-nVal)
	for _, i := range perm[nVal:] {
		train = append(train, files[i])
	}
	return train, val, nil
}
