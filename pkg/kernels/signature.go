package kernels

import (
	"strings"

	"github.com/pkg/errors"
)

// Param is one parameter of a kernel entry point.
type Param struct {
	Name   string
	Global bool
	Const  bool
}

// Signature is the parsed parameter list of a kernel entry point.
type Signature struct {
	Entry  string
	Params []Param
}

// ParseSignature finds `__kernel void <entry>(...)` in source and parses its
// parameters. It is deliberately small: it understands the launch convention
// used by this package, not OpenCL C in general.
func ParseSignature(source, entry string) (*Signature, error) {
	marker := "void " + entry + "("
	at := -1
	for from := 0; ; {
		i := strings.Index(source[from:], marker)
		if i < 0 {
			break
		}
		i += from
		if strings.HasSuffix(strings.TrimSpace(source[:i]), "__kernel") {
			at = i
			break
		}
		from = i + len(marker)
	}
	if at < 0 {
		return nil, errors.Errorf("entry point %q not found", entry)
	}
	rest := source[at+len(marker):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return nil, errors.Errorf("entry point %q: unterminated parameter list", entry)
	}

	sig := &Signature{Entry: entry}
	for _, raw := range strings.Split(rest[:end], ",") {
		fields := strings.Fields(strings.ReplaceAll(raw, "*", " * "))
		if len(fields) < 2 {
			return nil, errors.Errorf("entry point %q: malformed parameter %q", entry, strings.TrimSpace(raw))
		}
		p := Param{Name: fields[len(fields)-1]}
		for _, f := range fields[:len(fields)-1] {
			switch f {
			case "__global", "global":
				p.Global = true
			case "const":
				p.Const = true
			}
		}
		sig.Params = append(sig.Params, p)
	}
	return sig, nil
}

// Match checks that the signature follows the launch convention for d:
// one global buffer per binding (const exactly when read-only), then the
// element count n, then one value parameter per scalar.
func (s *Signature) Match(d *Descriptor) error {
	want := len(d.Bindings) + 1 + len(d.Scalars)
	if len(s.Params) != want {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: entry %q has %d parameters, want %d",
			d.Name, s.Entry, len(s.Params), want)
	}
	for i, b := range d.Bindings {
		p := s.Params[i]
		if !p.Global {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: parameter %q is not a global buffer", d.Name, p.Name)
		}
		if p.Name != b.Name {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: binding %d is %q in source, %q in descriptor",
				d.Name, i, p.Name, b.Name)
		}
		if p.Const != (b.Access == ReadOnly) {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: binding %q is %s but source const=%v",
				d.Name, b.Name, b.Access, p.Const)
		}
	}
	n := s.Params[len(d.Bindings)]
	if n.Global || n.Name != "n" {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: expected element count parameter n, got %q", d.Name, n.Name)
	}
	for i, sc := range d.Scalars {
		p := s.Params[len(d.Bindings)+1+i]
		if p.Global || p.Name != sc.Name {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: expected scalar %q, got %q", d.Name, sc.Name, p.Name)
		}
	}
	return nil
}
