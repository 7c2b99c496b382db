package dataset

import (
	"fmt"
	"io"
	"math/rand"
)

// Loader iterates a dataset in batches.
type Loader struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	seed      int64
	passes    int64
	order     []int
	pos       int
}

// Loader returns a batch iterator. With shuffle set, every pass visits the
// samples in a new order drawn from seed. When the dataset randomly rotates,
// each pass rotates every graph afresh, also drawn from seed.
func (d *Dataset) Loader(batchSize int, shuffle bool, seed int64) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size %d must be positive", batchSize)
	}
	l := &Loader{
		ds:        d,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		seed:      seed,
	}
	l.Reset()
	return l, nil
}

// Reset starts a new pass.
func (l *Loader) Reset() {
	n := l.ds.Len()
	if l.shuffle {
		l.order = l.rng.Perm(n)
	} else {
		l.order = make([]int, n)
		for i := range l.order {
			l.order[i] = i
		}
	}
	l.pos = 0
	l.passes++
}

// NumBatches returns the number of batches per pass. The last batch may be
// short.
func (l *Loader) NumBatches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Next returns the next batch, or io.EOF at the end of the pass.
func (l *Loader) Next() (*Batch, error) {
	if l.pos >= len(l.order) {
		return nil, io.EOF
	}
	end := min(l.pos+l.batchSize, len(l.order))
	samples := make([]*Sample, 0, end-l.pos)
	for _, i := range l.order[l.pos:end] {
		samples = append(samples, l.ds.base.Augment(l.ds.Sample(i), l.seed*1_000_003+l.passes))
	}
	l.pos = end
	return l.ds.Collate(samples)
}
