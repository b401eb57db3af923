package kernels

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a BLAS operation.
//
// Every operation the library knows about has a Kind, including the ones no
// device can run yet. Reductions and scans need subgroup extensions that the
// supported kernel languages do not expose, so Dot, Asum and Iamax (and the
// matrix operations built on them) are declared but unsupported. Adding a
// descriptor for one of them is all it takes to enable it: the dispatch
// contract stays the same.
type Kind int

const (
	KindScal Kind = iota
	KindAxpy
	KindDot
	KindAsum
	KindIamax
	KindGemv
	KindGemm
)

var kindInfo = [...]struct {
	name      string
	level     int
	reference string
}{
	KindScal:  {"scal", 1, "sscal"},
	KindAxpy:  {"axpy", 1, "saxpy"},
	KindDot:   {"dot", 1, "sdot"},
	KindAsum:  {"asum", 1, "sasum"},
	KindIamax: {"iamax", 1, "isamax"},
	KindGemv:  {"gemv", 2, "sgemv"},
	KindGemm:  {"gemm", 3, "sgemm"},
}

// Kinds lists every known operation, supported or not.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindInfo))
	for i := range kindInfo {
		kinds[i] = Kind(i)
	}
	return kinds
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindInfo)
}

// String returns the short operation name ("scal", "axpy", ...).
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindInfo[k].name
}

// Level returns the BLAS level (1, 2 or 3), or 0 for an unknown kind.
func (k Kind) Level() int {
	if !k.valid() {
		return 0
	}
	return kindInfo[k].level
}

// Reference returns the netlib routine the operation corresponds to.
func (k Kind) Reference() string {
	if !k.valid() {
		return ""
	}
	return kindInfo[k].reference
}

// Supported reports whether a descriptor is registered for the kind.
func (k Kind) Supported() bool {
	_, ok := registry[k]
	return ok
}

// ParseKind resolves an operation by its short name or netlib reference name.
func ParseKind(name string) (Kind, error) {
	for i, info := range kindInfo {
		if info.name == name || info.reference == name {
			return Kind(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownKind, "%q", name)
}

// ByLevel returns the kinds that belong to the given BLAS level.
func ByLevel(level int) []Kind {
	var kinds []Kind
	for _, k := range Kinds() {
		if k.Level() == level {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
