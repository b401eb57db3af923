package kernels

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredDescriptorsValidate(t *testing.T) {
	for _, d := range All() {
		t.Run(d.Key(), func(t *testing.T) {
			require.NoError(t, d.Validate())
			assert.Equal(t, GroupSize, d.GroupSize)
			assert.True(t, d.Kind.Supported())
		})
	}
}

func TestLookup(t *testing.T) {
	t.Run("supported kinds", func(t *testing.T) {
		d, err := Lookup(KindScal)
		require.NoError(t, err)
		assert.Same(t, Scale, d)

		d, err = Lookup(KindAxpy)
		require.NoError(t, err)
		assert.Same(t, Axpy, d)
	})

	t.Run("unsupported kinds", func(t *testing.T) {
		for _, k := range []Kind{KindDot, KindAsum, KindIamax, KindGemv, KindGemm} {
			_, err := Lookup(k)
			assert.True(t, errors.Is(err, ErrUnsupportedOperation), "%s: %v", k, err)
			assert.False(t, k.Supported())
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Lookup(Kind(99))
		assert.True(t, errors.Is(err, ErrUnknownKind))
	})
}

func TestKindMetadata(t *testing.T) {
	assert.Equal(t, "scal", KindScal.String())
	assert.Equal(t, "isamax", KindIamax.Reference())
	assert.Equal(t, 2, KindGemv.Level())
	assert.Equal(t, 3, KindGemm.Level())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.Equal(t, []Kind{KindScal, KindAxpy, KindDot, KindAsum, KindIamax}, ByLevel(1))
	assert.Equal(t, []Kind{KindGemm}, ByLevel(3))

	k, err := ParseKind("saxpy")
	require.NoError(t, err)
	assert.Equal(t, KindAxpy, k)

	_, err = ParseKind("trsv")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestElementRules(t *testing.T) {
	t.Run("scale", func(t *testing.T) {
		x := []uint32{0, 1, 2, 3, 4}
		for i := range x {
			Scale.Element(i, [][]uint32{x}, 2)
		}
		assert.Equal(t, []uint32{0, 2, 4, 6, 8}, x)
	})

	t.Run("axpy", func(t *testing.T) {
		x := []uint32{5, 6, 7, 8, 9}
		y := []uint32{0, 1, 2, 3, 4}
		for i := range y {
			Axpy.Element(i, [][]uint32{x, y}, 2)
		}
		assert.Equal(t, []uint32{10, 13, 16, 19, 22}, y)
		assert.Equal(t, []uint32{5, 6, 7, 8, 9}, x, "x is read-only")
	})

	t.Run("wraparound", func(t *testing.T) {
		x := []uint32{0x80000001}
		Scale.Element(0, [][]uint32{x}, 2)
		assert.Equal(t, uint32(2), x[0])
	})
}

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature(Axpy.Source, "axpy")
	require.NoError(t, err)
	require.Len(t, sig.Params, 4)
	assert.Equal(t, Param{Name: "x", Global: true, Const: true}, sig.Params[0])
	assert.Equal(t, Param{Name: "y", Global: true}, sig.Params[1])
	assert.Equal(t, Param{Name: "n", Const: true}, sig.Params[2])
	assert.Equal(t, Param{Name: "a", Const: true}, sig.Params[3])

	_, err = ParseSignature(Axpy.Source, "scale")
	assert.Error(t, err)

	_, err = ParseSignature("void scale(__global uint* x, const uint n, const uint a) {}", "scale")
	assert.Error(t, err, "missing __kernel qualifier")
}

func TestValidateRejectsMismatches(t *testing.T) {
	clone := func() *Descriptor {
		d := *Axpy
		d.Bindings = append([]Binding(nil), Axpy.Bindings...)
		d.Scalars = append([]Scalar(nil), Axpy.Scalars...)
		return &d
	}

	tests := []struct {
		name   string
		mutate func(d *Descriptor)
	}{
		{"wrong access", func(d *Descriptor) { d.Bindings[0].Access = ReadWrite }},
		{"wrong binding name", func(d *Descriptor) { d.Bindings[1].Name = "z" }},
		{"missing binding", func(d *Descriptor) { d.Bindings = d.Bindings[1:] }},
		{"two scalars", func(d *Descriptor) { d.Scalars = append(d.Scalars, Scalar{Name: "b"}) }},
		{"no element rule", func(d *Descriptor) { d.Element = nil }},
		{"bad entry", func(d *Descriptor) { d.Entry = "saxpy" }},
		{"zero version", func(d *Descriptor) { d.Version = 0 }},
		{"zero group size", func(d *Descriptor) { d.GroupSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := clone()
			tt.mutate(d)
			err := d.Validate()
			assert.True(t, errors.Is(err, ErrInvalidDescriptor), "got %v", err)
		})
	}
}

func TestDigest(t *testing.T) {
	assert.Equal(t, Scale.Digest(), Scale.Digest())
	assert.NotEqual(t, Scale.Digest(), Axpy.Digest())
	assert.Len(t, Scale.DigestHex(), 64)

	d := *Scale
	d.Version = 2
	assert.NotEqual(t, Scale.Digest(), d.Digest())
	assert.Equal(t, "scale/v2", d.Key())
}

func TestScalarEncoding(t *testing.T) {
	b := EncodeScalar(0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)

	a, err := DecodeScalar(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), a)

	_, err = DecodeScalar([]byte{1, 2})
	assert.Error(t, err)
}

func TestGroups(t *testing.T) {
	assert.Equal(t, 0, Groups(0, 64))
	assert.Equal(t, 1, Groups(1, 64))
	assert.Equal(t, 1, Groups(64, 64))
	assert.Equal(t, 2, Groups(65, 64))
	assert.Equal(t, 16, Groups(1024, 64))
}

func TestPushLayout(t *testing.T) {
	assert.Equal(t, 4, Axpy.PushSize())
	assert.Equal(t, []int{1}, Axpy.Writes())
	assert.Equal(t, []int{0}, Scale.Writes())
}
