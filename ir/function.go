package ir

import "fmt"

// ---------------------------------------------------------------------------
// Varnode: a value node in the operation graph
// ---------------------------------------------------------------------------

// Varnode is a single value in the lifted function: either a constant or the
// output of a defining Op. Non-constant varnodes track the ops that read
// them so transformations can find and rewrite uses.
type Varnode struct {
	id       uint64
	size     int // size in bytes
	constant bool
	value    uint64
	def      *Op
	uses     []*Op
}

// ID returns the varnode's stable identifier.
func (v *Varnode) ID() uint64 { return v.id }

// Size returns the varnode's size in bytes.
func (v *Varnode) Size() int { return v.size }

// IsConstant reports whether the varnode is a constant.
func (v *Varnode) IsConstant() bool { return v.constant }

// Value returns the constant value. Meaningless for non-constants.
func (v *Varnode) Value() uint64 { return v.value }

// Def returns the op defining this varnode, or nil for constants and inputs.
func (v *Varnode) Def() *Op { return v.def }

// NumUses returns the number of ops reading this varnode.
func (v *Varnode) NumUses() int { return len(v.uses) }

// Uses returns the ops reading this varnode. The slice is live; callers must
// not retain it across graph mutations.
func (v *Varnode) Uses() []*Op { return v.uses }

// LoneUse returns the single op reading this varnode, or nil if the varnode
// has zero or multiple readers.
func (v *Varnode) LoneUse() *Op {
	if len(v.uses) != 1 {
		return nil
	}
	return v.uses[0]
}

func (v *Varnode) addUse(op *Op) {
	v.uses = append(v.uses, op)
}

func (v *Varnode) removeUse(op *Op) {
	for i, u := range v.uses {
		if u == op {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Op: a single operation in the graph
// ---------------------------------------------------------------------------

// Op is one operation in the function's graph. Ops carry a monotonically
// increasing id; the id orders iteration and survives any amount of graph
// mutation, so a saved id is always a safe resume point.
type Op struct {
	id     uint64
	code   OpCode
	inputs []*Varnode
	output *Varnode
	dead   bool
}

// ID returns the op's stable identifier.
func (o *Op) ID() uint64 { return o.id }

// Code returns the op's current opcode.
func (o *Op) Code() OpCode { return o.code }

// IsDead reports whether the op has been removed from the graph.
func (o *Op) IsDead() bool { return o.dead }

// NumInputs returns the number of input varnodes.
func (o *Op) NumInputs() int { return len(o.inputs) }

// Input returns the input varnode in the given slot.
func (o *Op) Input(slot int) *Varnode { return o.inputs[slot] }

// Output returns the op's output varnode, or nil.
func (o *Op) Output() *Varnode { return o.output }

// String formats the op for diagnostics.
func (o *Op) String() string {
	return fmt.Sprintf("%d:%s", o.id, o.code)
}

// ---------------------------------------------------------------------------
// MessageSink: destination for transformation diagnostics
// ---------------------------------------------------------------------------

// MessageSink receives diagnostic messages emitted while a function is being
// transformed.
type MessageSink interface {
	Printf(format string, args ...any)
}

type discardSink struct{}

func (discardSink) Printf(string, ...any) {}

// ---------------------------------------------------------------------------
// Function: the operation graph
// ---------------------------------------------------------------------------

// Function owns the operation graph for one lifted function. The op index is
// append-only between calls to ClearAnalysis: removing an op marks it dead
// but never shifts the position of any other op, so iterators parked on a
// "next" handle stay valid through arbitrary removals.
type Function struct {
	name string
	seq  uint64
	ops  []*Op
	live int

	restartPending    bool
	jumpTableRecovery bool

	warnings []string
	sink     MessageSink
}

// NewFunction creates an empty function graph.
func NewFunction(name string) *Function {
	return &Function{name: name, sink: discardSink{}}
}

// Name returns the function's name.
func (f *Function) Name() string { return f.name }

// SetMessageSink directs diagnostic messages to the given sink.
func (f *Function) SetMessageSink(sink MessageSink) {
	if sink == nil {
		sink = discardSink{}
	}
	f.sink = sink
}

// Messagef emits a diagnostic message.
func (f *Function) Messagef(format string, args ...any) {
	f.sink.Printf(format, args...)
}

// Warning records a one-line warning attached to the function header.
func (f *Function) Warning(msg string) {
	f.warnings = append(f.warnings, msg)
}

// Warnings returns the warnings recorded so far.
func (f *Function) Warnings() []string { return f.warnings }

func (f *Function) nextID() uint64 {
	f.seq++
	return f.seq
}

// NewConstant allocates a constant varnode.
func (f *Function) NewConstant(size int, value uint64) *Varnode {
	return &Varnode{id: f.nextID(), size: size, constant: true, value: value}
}

// NewUnique allocates a fresh non-constant varnode with no defining op.
func (f *Function) NewUnique(size int) *Varnode {
	return &Varnode{id: f.nextID(), size: size}
}

// NewOp appends a new operation to the graph. The output may be nil for ops
// that produce no value.
func (f *Function) NewOp(code OpCode, output *Varnode, inputs ...*Varnode) *Op {
	op := &Op{id: f.nextID(), code: code, inputs: inputs, output: output}
	for _, in := range inputs {
		in.addUse(op)
	}
	if output != nil {
		output.def = op
	}
	f.ops = append(f.ops, op)
	f.live++
	return op
}

// SetOpCode changes an op's opcode in place.
func (f *Function) SetOpCode(op *Op, code OpCode) {
	op.code = code
}

// SetInput replaces the input varnode in the given slot.
func (f *Function) SetInput(op *Op, vn *Varnode, slot int) {
	old := op.inputs[slot]
	if old == vn {
		return
	}
	old.removeUse(op)
	op.inputs[slot] = vn
	vn.addUse(op)
}

// RemoveInput deletes the input in the given slot, shifting later slots down.
func (f *Function) RemoveInput(op *Op, slot int) {
	op.inputs[slot].removeUse(op)
	op.inputs = append(op.inputs[:slot], op.inputs[slot+1:]...)
}

// RemoveOp removes an op from the graph. The op is marked dead and unlinked
// from its inputs and output; its slot in the index is retained until the
// scheduler releases it, so parked iterators are unaffected.
func (f *Function) RemoveOp(op *Op) {
	if op.dead {
		return
	}
	op.dead = true
	for _, in := range op.inputs {
		in.removeUse(op)
	}
	op.inputs = nil
	if op.output != nil {
		op.output.def = nil
		op.output = nil
	}
	f.live--
}

// OpGone tells the function that the scheduler has observed a dead op and
// holds no further reference to it. Dead slots are reclaimed wholesale by
// ClearAnalysis, which never runs with an iterator parked on the graph, so
// no per-op bookkeeping is needed here.
func (f *Function) OpGone(op *Op) {}

// NumOps returns the number of live operations.
func (f *Function) NumOps() int { return f.live }

// RestartPending reports whether a transformation has requested that the
// whole simplification sequence be rerun.
func (f *Function) RestartPending() bool { return f.restartPending }

// SetRestartPending sets or clears the restart request.
func (f *Function) SetRestartPending(pending bool) {
	f.restartPending = pending
}

// InJumpTableRecovery reports whether the function is currently being
// processed inside nested jump-table recovery, during which restart requests
// are deferred.
func (f *Function) InJumpTableRecovery() bool { return f.jumpTableRecovery }

// SetJumpTableRecovery marks entry to or exit from jump-table recovery.
func (f *Function) SetJumpTableRecovery(on bool) {
	f.jumpTableRecovery = on
}

// ClearAnalysis discards prior analysis state ahead of a restart: dead ops
// are compacted out of the index and the restart request is cleared.
// Must not be called while an iterator is parked on the graph.
func (f *Function) ClearAnalysis() {
	kept := f.ops[:0]
	for _, op := range f.ops {
		if !op.dead {
			kept = append(kept, op)
		}
	}
	f.ops = kept
	f.restartPending = false
}

// ---------------------------------------------------------------------------
// Iteration
// ---------------------------------------------------------------------------

// OpIter walks the live operations of a function in id order. The iterator
// follows a read-current, advance, then-mutate discipline: after Advance the
// parked position refers to the next op to examine, and destroying the
// previously current op never invalidates it.
type OpIter struct {
	fn  *Function
	pos int
}

// Ops returns an iterator positioned at the first live operation.
func (f *Function) Ops() *OpIter {
	return &OpIter{fn: f}
}

func (it *OpIter) skipDead() {
	for it.pos < len(it.fn.ops) && it.fn.ops[it.pos].dead {
		it.pos++
	}
}

// HasMore reports whether a live operation remains.
func (it *OpIter) HasMore() bool {
	it.skipDead()
	return it.pos < len(it.fn.ops)
}

// Current returns the live operation at the parked position. Only valid
// after HasMore has returned true.
func (it *OpIter) Current() *Op {
	it.skipDead()
	return it.fn.ops[it.pos]
}

// Advance parks the iterator past the current operation.
func (it *OpIter) Advance() {
	it.pos++
}
