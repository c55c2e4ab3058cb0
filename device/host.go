// Package device provides the host execution substrate for the operator
// kernels: a bounded pool of workers, each handed a contiguous block of
// elements.
package device

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/notargets/PAKernel/partitions"
	"github.com/notargets/PAKernel/utils/logging"
	"golang.org/x/sync/errgroup"
)

// Host runs data parallel loops over element index spaces
type Host struct {
	Workers int
	logger  *slog.Logger

	mu      sync.Mutex
	layouts map[layoutKey]*partitions.PartitionLayout
}

type layoutKey struct {
	n, batch int
}

type HostOption func(*Host)

func WithLogger(logger *slog.Logger) HostOption {
	return func(h *Host) { h.logger = logger }
}

// NewHost creates a host substrate with the given number of workers;
// workers <= 0 uses GOMAXPROCS.
func NewHost(workers int, opts ...HostOption) *Host {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	h := &Host{
		Workers: workers,
		logger:  logging.NewNop(),
		layouts: make(map[layoutKey]*partitions.PartitionLayout),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serial returns a single worker host
func Serial() *Host { return NewHost(1) }

// ForAll calls body(i) for every i in [0,n)
func (h *Host) ForAll(n int, body func(i int)) {
	h.ForAllRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			body(i)
		}
	})
}

// ForAllRange splits [0,n) into one contiguous block per worker and calls
// body once per block. Per worker scratch can be allocated inside body.
func (h *Host) ForAllRange(n int, body func(start, end int)) {
	h.ForAllBatch(n, 1, body)
}

// ForAllBatch is ForAllRange with block boundaries on multiples of nbz, so
// every block holds whole batches of nbz elements (the last may be short).
func (h *Host) ForAllBatch(n, nbz int, body func(start, end int)) {
	if n <= 0 {
		return
	}
	if nbz < 1 {
		panic(fmt.Sprintf("batch size must be positive, have %d", nbz))
	}
	if h.Workers == 1 || n <= nbz {
		body(0, n)
		return
	}

	layout := h.layout(n, nbz)
	var g errgroup.Group
	g.SetLimit(h.Workers)
	for i := range layout.Partitions {
		start, end, _ := layout.Partitions[i].Range()
		if start == end {
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker on elements [%d,%d): %v", start, end, r)
				}
			}()
			body(start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err.Error())
	}
}

func (h *Host) layout(n, nbz int) *partitions.PartitionLayout {
	key := layoutKey{n, nbz}
	h.mu.Lock()
	defer h.mu.Unlock()
	if layout, ok := h.layouts[key]; ok {
		return layout
	}
	pb := &partitions.PartitionBuilder{
		Mesh:          &partitions.MeshConnectivity{NumElements: n},
		NumPartitions: h.Workers,
		BatchSize:     nbz,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		panic(err)
	}
	stats := layout.PartitionStatistics()
	h.logger.Debug("host partition layout",
		"elements", n, "batch", nbz, "partitions", layout.NumPartitions,
		"kpartMax", layout.KpartMax, "imbalance", stats.Imbalance)
	h.layouts[key] = layout
	return layout
}
