package checkpoint

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jactl-lang/jactl/internal/bytecode"
)

// ID is a checkpoint's own durable identity, distinct from the host's
// (script_id, seq) pair the saveCheckpoint callback carries: seq is
// "which save this is for this running script", while ID survives even
// across a script_id the host chooses to reuse.
type ID = uuid.UUID

// NewID mints a fresh checkpoint identity, called once per Save.
func NewID() ID { return uuid.New() }

// Program is the subset of a compiled script/class graph internal/checkpoint
// needs to resolve a resumed Continuation's function pointers and class
// layouts by name: pkg/jactl builds one from whatever it compiled and
// passes it to Load (to rebuild them); Save does not take one.
type Program struct {
	Functions map[string]*bytecode.FunctionObject
	Classes   map[string]*bytecode.ClassDescriptor
}

// Save serializes a suspended VM.Continuation into the checkpoint wire
// format: a version byte, then the frame stack (function FQName + pc +
// locals + captured upvalues + bound receiver), then the shared operand
// stack, then the global slots — composite values in locals/stack/globals
// are written once each via the tagged-value region's cycle-aware
// encoder, with later occurrences of the same pointer collapsed to a
// tagRef back-pointer so circular references round-trip.
func Save(cont *bytecode.Continuation) ([]byte, ID, error) {
	id := NewID()
	w := newWriter()
	w.byte(wireVersion)
	idBytes, _ := id.MarshalBinary()
	w.bytesRaw(idBytes)

	w.varint(int64(len(cont.Frames)))
	for _, f := range cont.Frames {
		if f.Fn == nil {
			return nil, id, fmt.Errorf("checkpoint: frame has no function")
		}
		w.str(f.Fn.FQName)
		w.varint(int64(f.IP))
		w.varint(int64(len(f.Locals)))
		for _, l := range f.Locals {
			if err := w.value(l); err != nil {
				return nil, id, err
			}
		}
		w.varint(int64(len(f.Captured)))
		for _, uv := range f.Captured {
			if err := w.value(uv.Get()); err != nil {
				return nil, id, err
			}
		}
		if f.This != nil {
			w.byte(1)
			if err := w.value(bytecode.InstanceVal(f.This)); err != nil {
				return nil, id, err
			}
		} else {
			w.byte(0)
		}
	}

	w.varint(int64(len(cont.Stack)))
	for _, v := range cont.Stack {
		if err := w.value(v); err != nil {
			return nil, id, err
		}
	}

	w.varint(int64(len(cont.Globals)))
	for _, v := range cont.Globals {
		if err := w.value(v); err != nil {
			return nil, id, err
		}
	}

	return w.buf.Bytes(), id, nil
}

// Load deserializes a checkpoint blob back into a Continuation runnable
// by VM.Resume, resolving each frame's function and each CLASS value's
// descriptor against prog: resuming requires the same class definitions
// to be registered, since a FunctionObject's compiled Chunk isn't itself
// part of the wire format.
func Load(data []byte, prog *Program) (*bytecode.Continuation, ID, error) {
	r := newReader(data)
	version, err := r.byte()
	if err != nil {
		return nil, ID{}, err
	}
	if version != wireVersion {
		return nil, ID{}, fmt.Errorf("checkpoint: unsupported wire version %d (expected %d)", version, wireVersion)
	}
	idBytes, err := r.bytesRaw()
	if err != nil {
		return nil, ID{}, err
	}
	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, ID{}, fmt.Errorf("checkpoint: bad id: %w", err)
	}

	nFrames, err := r.varint()
	if err != nil {
		return nil, id, err
	}
	frames := make([]bytecode.FrameSnapshot, nFrames)
	for i := range frames {
		fqname, err := r.str()
		if err != nil {
			return nil, id, err
		}
		fn := prog.Functions[fqname]
		if fn == nil {
			return nil, id, fmt.Errorf("checkpoint: function %q not found while restoring; script being resumed must define the same functions", fqname)
		}
		ip, err := r.varint()
		if err != nil {
			return nil, id, err
		}
		nLocals, err := r.varint()
		if err != nil {
			return nil, id, err
		}
		locals := make([]bytecode.Value, nLocals)
		for j := range locals {
			locals[j], err = r.value(prog.Classes)
			if err != nil {
				return nil, id, err
			}
		}
		nCaptured, err := r.varint()
		if err != nil {
			return nil, id, err
		}
		captured := make([]*bytecode.Upvalue, nCaptured)
		for j := range captured {
			v, err := r.value(prog.Classes)
			if err != nil {
				return nil, id, err
			}
			captured[j] = bytecode.NewClosedUpvalue(v)
		}
		hasThis, err := r.byte()
		if err != nil {
			return nil, id, err
		}
		var this *bytecode.Instance
		if hasThis != 0 {
			v, err := r.value(prog.Classes)
			if err != nil {
				return nil, id, err
			}
			this = v.AsInstance()
		}
		frames[i] = bytecode.FrameSnapshot{Fn: fn, Locals: locals, Captured: captured, This: this, IP: int(ip)}
	}

	nStack, err := r.varint()
	if err != nil {
		return nil, id, err
	}
	stack := make([]bytecode.Value, nStack)
	for i := range stack {
		if stack[i], err = r.value(prog.Classes); err != nil {
			return nil, id, err
		}
	}

	nGlobals, err := r.varint()
	if err != nil {
		return nil, id, err
	}
	globals := make([]bytecode.Value, nGlobals)
	for i := range globals {
		if globals[i], err = r.value(prog.Classes); err != nil {
			return nil, id, err
		}
	}

	return &bytecode.Continuation{Frames: frames, Stack: stack, Globals: globals}, id, nil
}
