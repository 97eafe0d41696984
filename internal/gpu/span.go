package gpu

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/vk/rastergraph/internal/value"
)

// Stage is one node's slot in a fused span: its kernel plus the scalar
// parameter values resolved for the current dispatch.
type Stage struct {
	Kernel *Kernel
	Params []float64
}

// Span is a maximal run of adjacent device-eligible nodes over
// raster-valued flow. Stages apply in order to every pixel.
type Span struct {
	Stages []Stage
}

// ParamCount is the total number of scalar parameters across all stages.
func (s Span) ParamCount() int {
	n := 0
	for _, st := range s.Stages {
		n += len(st.Kernel.Params)
	}
	return n
}

// FlatParams flattens every stage's parameter values in dispatch order.
func (s Span) FlatParams() []float64 {
	out := make([]float64, 0, s.ParamCount())
	for _, st := range s.Stages {
		out = append(out, st.Params...)
	}
	return out
}

// Fingerprint identifies the span's structure: kernel names, WGSL
// bodies and parameter arities. Parameter values are excluded, so
// editing a constant upstream keeps the fingerprint stable and the
// compiled shader is reused.
func (s Span) Fingerprint() value.Digest {
	h := sha256.New()
	var arity [8]byte
	for _, st := range s.Stages {
		binary.LittleEndian.PutUint64(arity[:], uint64(len(st.Kernel.Params)))
		h.Write([]byte(st.Kernel.Name))
		h.Write([]byte{0})
		h.Write([]byte(st.Kernel.WGSL))
		h.Write([]byte{0})
		h.Write(arity[:])
	}
	var d value.Digest
	h.Sum(d[:0])
	return d
}
