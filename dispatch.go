package fileconv

import (
	"fmt"
)

// Binding ties a Converter to the (MediaType pattern, format) pair it implements.
type Binding struct {
	Name      string
	Pattern   MediaType
	Format    string
	Converter Converter
}

// Dispatcher resolves a concrete Converter for a detected MediaType and a
// target format. It is built once and never mutated.
type Dispatcher struct {
	registry *Registry
	bindings []Binding
}

// NewDispatcher returns a Dispatcher over registry. Bindings are matched in
// the order given: the first whose pattern is a prefix of the MediaType and
// whose format equals the target wins.
func NewDispatcher(registry *Registry, bindings ...Binding) (*Dispatcher, error) {
	d := &Dispatcher{registry: registry, bindings: make([]Binding, 0, len(bindings))}
	for _, b := range bindings {
		if b.Pattern == Unknown || b.Converter == nil {
			return nil, fmt.Errorf("dispatch: binding %q needs a pattern and a converter", b.Name)
		}
		b.Format = NormalizeFormat(b.Format)
		if b.Format == "" {
			return nil, fmt.Errorf("dispatch: binding %q has no format", b.Name)
		}
		d.bindings = append(d.bindings, b)
	}
	return d, nil
}

// Resolve returns the Converter for (mt, format). The pair must be declared
// by the registry and implemented by a binding; anything else is an
// unsupported conversion, including a declared pair with no implementation.
func (d *Dispatcher) Resolve(mt MediaType, format string) (Binding, error) {
	format = NormalizeFormat(format)
	if !d.registry.Supports(mt, format) {
		return Binding{}, &Error{
			Kind:      KindUnsupportedConversion,
			Op:        "dispatch",
			MediaType: mt,
			Format:    format,
			Err:       fmt.Errorf("%q is not offered for this media type", format),
		}
	}
	for _, b := range d.bindings {
		if b.Format == format && mt.HasPrefix(b.Pattern) {
			return b, nil
		}
	}
	return Binding{}, &Error{
		Kind:      KindUnsupportedConversion,
		Op:        "dispatch",
		MediaType: mt,
		Format:    format,
		Err:       fmt.Errorf("no converter implements %q for this media type", format),
	}
}

// Implemented reports whether some binding covers (mt, format), ignoring
// the registry.
func (d *Dispatcher) Implemented(mt MediaType, format string) bool {
	format = NormalizeFormat(format)
	for _, b := range d.bindings {
		if b.Format == format && mt.HasPrefix(b.Pattern) {
			return true
		}
	}
	return false
}

// Bindings returns a copy of the bindings in match order.
func (d *Dispatcher) Bindings() []Binding {
	out := make([]Binding, len(d.bindings))
	copy(out, d.bindings)
	return out
}
