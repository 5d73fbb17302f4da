package partitions

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor applies fn over the index range [0, n) in blocks. Blocks never
// overlap and Run returns only after every block has finished.
type Executor interface {
	Run(n int, fn func(lo, hi int)) error
}

// Serial runs the whole range inline on the calling goroutine
type Serial struct{}

func (Serial) Run(n int, fn func(lo, hi int)) error {
	if n > 0 {
		fn(0, n)
	}
	return nil
}

// Pool runs contiguous cell blocks on at most Workers goroutines. A zero
// Pool uses GOMAXPROCS workers and logs nothing.
type Pool struct {
	Workers int
	// MinBlock is the smallest block worth handing to a goroutine
	MinBlock int
	logger   *zap.Logger
}

// NewPool creates a pool; workers <= 0 means GOMAXPROCS
func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{Workers: workers, MinBlock: 1024, logger: logger}
}

func (p *Pool) Run(n int, fn func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}
	workers, logger := p.Workers, p.logger
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	target := (n + workers - 1) / workers
	if target < p.MinBlock {
		target = p.MinBlock
	}
	layout, err := (&PartitionBuilder{
		NumCells:            n,
		TargetPartitionSize: target,
		Strategy:            BlockPartition,
	}).BuildPartitions()
	if err != nil {
		return err
	}
	ranges, err := layout.Ranges()
	if err != nil {
		return err
	}
	if len(ranges) == 1 {
		return runBlock(fn, 0, ranges[0])
	}
	logger.Debug("pool run",
		zap.Int("n", n),
		zap.Int("blocks", len(ranges)),
		zap.Int("workers", workers))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, r := range ranges {
		g.Go(func() error { return runBlock(fn, i, r) })
	}
	return g.Wait()
}

// runBlock turns a panic inside fn into an error for the block
func runBlock(fn func(lo, hi int), id int, r [2]int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("block %d [%d,%d): panic: %v", id, r[0], r[1], rec)
		}
	}()
	fn(r[0], r[1])
	return nil
}
