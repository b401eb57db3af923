// Package kernels defines the compute kernels that gpublas can dispatch.
//
// A kernel is described by a plain Descriptor value: the kernel source text
// (OpenCL C, embedded from the .cl files next to this file), its entry point,
// the ordered buffer bindings with their access mode, the scalar push layout
// and the per-element rule. Devices that compile source (OpenCL) use Source
// and Entry. Devices that execute on the host (the software device) validate
// the same source signature and then run Element for every index.
//
// Launch convention shared by all kernels:
//
//	__kernel void <entry>(<one __global uint* per binding>, const uint n, <one const uint per scalar>)
//
// Every kernel guards i < n, so launches may be rounded up to a whole number
// of work-groups.
//
// Descriptors are validated at build time:
//
//	go generate ./pkg/kernels
//
// runs `gpublas kernels verify`, which fails on a malformed descriptor.
package kernels

//go:generate go run github.com/orneryd/gpublas/cmd/gpublas kernels verify

import (
	_ "embed"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Errors
var (
	ErrUnsupportedOperation = errors.New("kernels: operation not supported")
	ErrInvalidDescriptor    = errors.New("kernels: invalid kernel descriptor")
	ErrUnknownKind          = errors.New("kernels: unknown operation")
)

// GroupSize is the number of elements each work-group processes.
const GroupSize = 64

// Access is the direction of a buffer binding.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

func (a Access) String() string {
	if a == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// ScalarType is the type of a push scalar.
type ScalarType int

const (
	Uint32 ScalarType = iota
)

// Size returns the encoded size in bytes.
func (t ScalarType) Size() int { return 4 }

func (t ScalarType) String() string { return "uint" }

// Binding is one buffer parameter of a kernel.
type Binding struct {
	Name   string
	Access Access
}

// Scalar is one by-value parameter of a kernel.
type Scalar struct {
	Name string
	Type ScalarType
}

// ElementFunc computes element i in place. buffers follow the descriptor's
// binding order; a is the push scalar.
type ElementFunc func(i int, buffers [][]uint32, a uint32)

// Descriptor is the fixed definition of one elementwise kernel.
type Descriptor struct {
	Kind      Kind
	Name      string
	Version   int
	Entry     string
	Source    string
	Bindings  []Binding
	Scalars   []Scalar
	GroupSize int
	Element   ElementFunc
}

//go:embed scale.cl
var scaleSource string

//go:embed axpy.cl
var axpySource string

// Scale is x = a * x.
var Scale = &Descriptor{
	Kind:      KindScal,
	Name:      "scale",
	Version:   1,
	Entry:     "scale",
	Source:    scaleSource,
	Bindings:  []Binding{{Name: "x", Access: ReadWrite}},
	Scalars:   []Scalar{{Name: "a", Type: Uint32}},
	GroupSize: GroupSize,
	Element: func(i int, buffers [][]uint32, a uint32) {
		buffers[0][i] *= a
	},
}

// Axpy is y = a * x + y.
var Axpy = &Descriptor{
	Kind:    KindAxpy,
	Name:    "axpy",
	Version: 1,
	Entry:   "axpy",
	Source:  axpySource,
	Bindings: []Binding{
		{Name: "x", Access: ReadOnly},
		{Name: "y", Access: ReadWrite},
	},
	Scalars:   []Scalar{{Name: "a", Type: Uint32}},
	GroupSize: GroupSize,
	Element: func(i int, buffers [][]uint32, a uint32) {
		buffers[1][i] += a * buffers[0][i]
	},
}

var registry = map[Kind]*Descriptor{
	KindScal: Scale,
	KindAxpy: Axpy,
}

// Lookup returns the descriptor registered for kind.
func Lookup(kind Kind) (*Descriptor, error) {
	if d, ok := registry[kind]; ok {
		return d, nil
	}
	if !kind.valid() {
		return nil, errors.Wrapf(ErrUnknownKind, "%d", int(kind))
	}
	return nil, errors.Wrapf(ErrUnsupportedOperation, "%s (%s, level %d)", kind, kind.Reference(), kind.Level())
}

// All returns every registered descriptor in Kind order.
func All() []*Descriptor {
	var out []*Descriptor
	for _, k := range Kinds() {
		if d, ok := registry[k]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Key identifies a descriptor revision, e.g. "axpy/v1".
func (d *Descriptor) Key() string {
	return d.Name + "/v" + strconv.Itoa(d.Version)
}

// Digest is a blake2b-256 hash over everything that affects compilation.
func (d *Descriptor) Digest() [32]byte {
	h, _ := blake2b.New256(nil)
	for _, part := range []string{d.Name, strconv.Itoa(d.Version), d.Entry, d.Source} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// DigestHex is Digest as lowercase hex.
func (d *Descriptor) DigestHex() string {
	sum := d.Digest()
	return hex.EncodeToString(sum[:])
}

// Writes returns the binding indexes the kernel writes.
func (d *Descriptor) Writes() []int {
	var idx []int
	for i, b := range d.Bindings {
		if b.Access == ReadWrite {
			idx = append(idx, i)
		}
	}
	return idx
}

// PushSize is the size in bytes of the encoded scalar block.
func (d *Descriptor) PushSize() int {
	size := 0
	for _, s := range d.Scalars {
		size += s.Type.Size()
	}
	return size
}

// Validate checks the descriptor fields against its own source signature.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.Wrap(ErrInvalidDescriptor, "nil descriptor")
	}
	if d.Name == "" || d.Entry == "" {
		return errors.Wrapf(ErrInvalidDescriptor, "%q: name and entry point are required", d.Name)
	}
	if d.Version <= 0 {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: version must be positive", d.Name)
	}
	if d.GroupSize <= 0 {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: group size must be positive", d.Name)
	}
	if len(d.Bindings) == 0 {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: no buffer bindings", d.Name)
	}
	if len(d.Writes()) == 0 {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: no read-write binding", d.Name)
	}
	// A dispatch carries exactly one push scalar.
	if len(d.Scalars) != 1 {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: expected 1 scalar, got %d", d.Name, len(d.Scalars))
	}
	if d.Element == nil {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: missing element rule", d.Name)
	}
	sig, err := ParseSignature(d.Source, d.Entry)
	if err != nil {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: %v", d.Name, err)
	}
	return sig.Match(d)
}

// EncodeScalar encodes a push scalar as raw little-endian bytes.
func EncodeScalar(a uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, a)
	return b
}

// DecodeScalar is the inverse of EncodeScalar.
func DecodeScalar(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, errors.Errorf("kernels: scalar must be 4 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Groups returns the number of work-groups needed to cover n elements.
func Groups(n, groupSize int) int {
	if n <= 0 {
		return 0
	}
	return (n + groupSize - 1) / groupSize
}
