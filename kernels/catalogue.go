package kernels

import (
	"fmt"
	"sort"

	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// kernelFunc accumulates the action of one kernel variant into y
type kernelFunc func(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64)

// sizeKey identifies a catalogue entry within one dimension
type sizeKey struct {
	D1D, Q1D int
}

// Kernel is the code path chosen for a (dim, D1D, Q1D) triple
type Kernel struct {
	Dim, D1D, Q1D int
	NBZ           int  // Elements per thread group
	Specialized   bool // Staged, batched kernel from the catalogue

	apply, applyT kernelFunc
}

func (k Kernel) Name() string {
	if !k.Specialized {
		return fmt.Sprintf("generic%dD", k.Dim)
	}
	return fmt.Sprintf("smem%dD<%d,%d,%d>", k.Dim, k.D1D, k.Q1D, k.NBZ)
}

func (k Kernel) String() string { return k.Name() }

// Limits returns the size limits enforced before entering the kernel
func (k Kernel) Limits() DofQuadLimits {
	if k.Specialized {
		return DeviceLimits
	}
	return HostLimits
}

type catalogueEntry struct {
	NBZ           int
	apply, applyT kernelFunc
}

var catalogue = map[int]map[sizeKey]catalogueEntry{
	2: make(map[sizeKey]catalogueEntry),
	3: make(map[sizeKey]catalogueEntry),
}

func register2D(D1D, Q1D, NBZ int) {
	catalogue[2][sizeKey{D1D, Q1D}] = catalogueEntry{
		NBZ:    NBZ,
		apply:  smemApply2D(D1D, Q1D, NBZ),
		applyT: smemApplyTranspose2D(D1D, Q1D, NBZ),
	}
}

func register3D(D1D, Q1D int) {
	catalogue[3][sizeKey{D1D, Q1D}] = catalogueEntry{
		NBZ:    1,
		apply:  smemApply3D(D1D, Q1D),
		applyT: smemApplyTranspose3D(D1D, Q1D),
	}
}

func init() {
	// Smaller elements batch more of them per group
	register2D(2, 2, 8)
	register2D(3, 3, 4)
	register2D(3, 4, 4)
	register2D(4, 4, 4)
	register2D(4, 6, 4)
	register2D(5, 5, 2)
	register2D(5, 8, 2)
	register2D(6, 6, 1)
	register2D(7, 7, 1)
	register2D(8, 8, 1)
	register2D(9, 9, 1)

	register3D(2, 2)
	register3D(2, 3)
	register3D(2, 4)
	register3D(2, 6)
	register3D(3, 4)
	register3D(3, 5)
	register3D(4, 5)
	register3D(4, 8)
	register3D(5, 6)
	register3D(6, 7)
	register3D(7, 8)
	register3D(8, 9)
}

// Select returns the kernel for (dim, d1d, q1d): the catalogue entry when one
// exists, otherwise the generic kernel sized at run time. It has no side
// effects; dim must be 2 or 3.
func Select(dim, d1d, q1d int) Kernel {
	checkDim(dim, "Select")
	if ent, ok := catalogue[dim][sizeKey{d1d, q1d}]; ok {
		return Kernel{
			Dim: dim, D1D: d1d, Q1D: q1d, NBZ: ent.NBZ, Specialized: true,
			apply: ent.apply, applyT: ent.applyT,
		}
	}
	return Generic(dim, d1d, q1d)
}

// Generic returns the run time sized kernel regardless of the catalogue
func Generic(dim, d1d, q1d int) Kernel {
	checkDim(dim, "Generic")
	k := Kernel{Dim: dim, D1D: d1d, Q1D: q1d, NBZ: 1}
	if dim == 2 {
		k.apply, k.applyT = applyGeneric2D, applyTransposeGeneric2D
	} else {
		k.apply, k.applyT = applyGeneric3D, applyTransposeGeneric3D
	}
	return k
}

// Catalogue lists the specialized kernels of a dimension ordered by
// (D1D, Q1D)
func Catalogue(dim int) []Kernel {
	checkDim(dim, "Catalogue")
	keys := make([]sizeKey, 0, len(catalogue[dim]))
	for k := range catalogue[dim] {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].D1D != keys[j].D1D {
			return keys[i].D1D < keys[j].D1D
		}
		return keys[i].Q1D < keys[j].Q1D
	})
	list := make([]Kernel, len(keys))
	for i, key := range keys {
		list[i] = Select(dim, key.D1D, key.Q1D)
	}
	return list
}

// Apply accumulates y += A x for ne elements
func (k Kernel) Apply(host *device.Host, ne int, maps *element.DofToQuad, op, x, y []float64) {
	k.launch(k.apply, "Apply", host, ne, maps, op, x, y)
}

// ApplyTranspose accumulates y += A^T x for ne elements
func (k Kernel) ApplyTranspose(host *device.Host, ne int, maps *element.DofToQuad, op, x, y []float64) {
	k.launch(k.applyT, "ApplyTranspose", host, ne, maps, op, x, y)
}

func (k Kernel) launch(fn kernelFunc, what string, host *device.Host, ne int,
	maps *element.DofToQuad, op, x, y []float64) {
	checkDim(k.Dim, what)
	if fn == nil {
		panic(fmt.Sprintf("%s on an unselected kernel", what))
	}
	k.Limits().Check(k.D1D, k.Q1D)
	if maps == nil {
		panic(fmt.Sprintf("%s needs basis tables", what))
	}
	maps.Validate()
	if maps.D1D != k.D1D || maps.Q1D != k.Q1D {
		panic(fmt.Sprintf("%s: basis tables are D1D=%d Q1D=%d, kernel %s is D1D=%d Q1D=%d",
			what, maps.D1D, maps.Q1D, k.Name(), k.D1D, k.Q1D))
	}
	nd, nq := 1, 1
	for i := 0; i < k.Dim; i++ {
		nd *= k.D1D
		nq *= k.Q1D
	}
	if len(op) != nq*k.Dim*ne {
		panic(fmt.Sprintf("%s: operator data has length %d, need %d (apply before setup?)",
			what, len(op), nq*k.Dim*ne))
	}
	if len(x) != nd*ne || len(y) != nd*ne {
		panic(fmt.Sprintf("%s: x and y must have length %d, have %d and %d",
			what, nd*ne, len(x), len(y)))
	}
	if host == nil {
		host = device.Serial()
	}
	fn(host, ne, maps, op, x, y)
}
