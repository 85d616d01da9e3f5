// Package graphpb defines the wire messages the snapshot package
// serializes a model.Model into: a model's signal index and operator
// signatures (never live neuron kernels). These are hand-declared Go
// structs implementing gogo/protobuf's proto.Message, in the style this
// repository's own biopb package predates a generator invocation for,
// rather than machine-generated from a .proto file committed alongside
// them.
package graphpb

import "fmt"

// SignalProto is the wire form of a signal.Signal: enough to
// reconstruct either a base or a view (Base == Id for a base).
type SignalProto struct {
	Id       int64    `protobuf:"varint,1,opt,name=id" json:"id,omitempty"`
	Name     string   `protobuf:"bytes,2,opt,name=name" json:"name,omitempty"`
	Dtype    uint32   `protobuf:"varint,3,opt,name=dtype" json:"dtype,omitempty"`
	Shape    []int64  `protobuf:"varint,4,rep,name=shape" json:"shape,omitempty"`
	Strides  []int64  `protobuf:"varint,5,rep,name=strides" json:"strides,omitempty"`
	Offset   int64    `protobuf:"varint,6,opt,name=offset" json:"offset,omitempty"`
	Base     int64    `protobuf:"varint,7,opt,name=base" json:"base,omitempty"`
	Readonly bool     `protobuf:"varint,8,opt,name=readonly" json:"readonly,omitempty"`
	Buf      []float64 `protobuf:"fixed64,9,rep,name=buf" json:"buf,omitempty"`
}

func (m *SignalProto) Reset()         { *m = SignalProto{} }
func (m *SignalProto) String() string { return fmt.Sprintf("%+v", *m) }
func (*SignalProto) ProtoMessage()    {}

// OperatorProto is the wire form of an operator.Op: its kind
// discriminant, diagnostic tag, the four disjoint signal-id lists, and
// a small bag of kind-specific scalar parameters (the neuron-model key
// for SimNeurons, the slice bounds and Inc flag for SlicedCopy) that
// don't fit the generic signal-list shape.
type OperatorProto struct {
	Id      int64   `protobuf:"varint,1,opt,name=id" json:"id,omitempty"`
	Kind    uint32  `protobuf:"varint,2,opt,name=kind" json:"kind,omitempty"`
	Tag     string  `protobuf:"bytes,3,opt,name=tag" json:"tag,omitempty"`
	Sets    []int64 `protobuf:"varint,4,rep,name=sets" json:"sets,omitempty"`
	Incs    []int64 `protobuf:"varint,5,rep,name=incs" json:"incs,omitempty"`
	Reads   []int64 `protobuf:"varint,6,rep,name=reads" json:"reads,omitempty"`
	Updates []int64 `protobuf:"varint,7,rep,name=updates" json:"updates,omitempty"`

	// NeuronKey is SimNeurons.Neurons.Key(), empty for every other kind.
	NeuronKey string `protobuf:"bytes,8,opt,name=neuron_key" json:"neuron_key,omitempty"`
	// SliceParams is [SrcStart, SrcStop, SrcStep, DstStart, DstStop,
	// DstStep], present only for SlicedCopy.
	SliceParams []int64 `protobuf:"varint,9,rep,name=slice_params" json:"slice_params,omitempty"`
	Inc         bool    `protobuf:"varint,10,opt,name=inc" json:"inc,omitempty"`
}

func (m *OperatorProto) Reset()         { *m = OperatorProto{} }
func (m *OperatorProto) String() string { return fmt.Sprintf("%+v", *m) }
func (*OperatorProto) ProtoMessage()    {}

// SignalRefProto is one entry of a ModelSnapshotProto's flattened
// owner/name -> signal index.
type SignalRefProto struct {
	Owner    string `protobuf:"bytes,1,opt,name=owner" json:"owner,omitempty"`
	Name     string `protobuf:"bytes,2,opt,name=name" json:"name,omitempty"`
	SignalId int64  `protobuf:"varint,3,opt,name=signal_id" json:"signal_id,omitempty"`
}

func (m *SignalRefProto) Reset()         { *m = SignalRefProto{} }
func (m *SignalRefProto) String() string { return fmt.Sprintf("%+v", *m) }
func (*SignalRefProto) ProtoMessage()    {}

// ModelSnapshotProto is the top-level wire message: every signal, every
// operator (in model.Operators order, which the dependency graph can be
// rebuilt from since operator order plus each operator's own signal
// references are sufficient to recompute producer/consumer edges), and
// the flattened signal index.
type ModelSnapshotProto struct {
	FormatVersion uint32            `protobuf:"varint,1,opt,name=format_version" json:"format_version,omitempty"`
	Signals       []*SignalProto    `protobuf:"bytes,2,rep,name=signals" json:"signals,omitempty"`
	Operators     []*OperatorProto  `protobuf:"bytes,3,rep,name=operators" json:"operators,omitempty"`
	SignalIndex   []*SignalRefProto `protobuf:"bytes,4,rep,name=signal_index" json:"signal_index,omitempty"`
	// DependencyEdges is [producerOperatorIndex, consumerOperatorIndex]
	// pairs, flattened, indexing into Operators (not arena IDs), so a
	// snapshot is self-contained without needing the original arena's
	// numbering.
	DependencyEdges []int64 `protobuf:"varint,5,rep,name=dependency_edges" json:"dependency_edges,omitempty"`
}

func (m *ModelSnapshotProto) Reset()         { *m = ModelSnapshotProto{} }
func (m *ModelSnapshotProto) String() string { return fmt.Sprintf("%+v", *m) }
func (*ModelSnapshotProto) ProtoMessage()    {}

// FormatVersion1 is the only wire format version this package emits or
// accepts.
const FormatVersion1 = 1
