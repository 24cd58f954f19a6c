package jactl

import (
	"fmt"

	"github.com/jactl-lang/jactl/internal/bytecode"
	"github.com/jactl-lang/jactl/internal/checkpoint"
)

// Script is a compiled, repeatedly-runnable program produced by
// Context.CompileScript.
type Script struct {
	ctx      *Context
	compiled *bytecode.Compiled
	source   string
	file     string
}

// Result is what a Run call hands back: either a final Value, or — if
// the script performed a suspending operation (sleep, _checkpoint, an
// async host callback) — a saved checkpoint blob the host must stash and
// later feed to Context.RecoverCheckpoint.
type Result struct {
	Value      bytecode.Value
	Suspended  bool
	Checkpoint []byte
	// CheckpointID is the durable identity Save stamped on the blob, for
	// hosts that want to correlate it with their own storage key without
	// re-parsing the blob.
	CheckpointID checkpoint.ID
}

func newResult(vm *bytecode.VM, value bytecode.Value, susp *bytecode.Suspend, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	if susp == nil {
		return &Result{Value: value}, nil
	}
	data, id, err := checkpoint.Save(vm.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("jactl: failed to save checkpoint for suspend reason %q: %w", susp.Reason, err)
	}
	return &Result{Suspended: true, Checkpoint: data, CheckpointID: id}, nil
}

// newVM builds a VM wired with this script's compiled classes and the
// Context's standard-library registry.
func (s *Script) newVM() *bytecode.VM {
	vm := bytecode.NewVM(s.compiled.Classes, nil, s.ctx.output)
	s.ctx.registry.Apply(vm)
	vm.SetSource(s.source, s.file)
	return vm
}

// Run executes the script from the start. A non-nil Result.Checkpoint
// means the script suspended and must be resumed later via
// Context.RecoverCheckpoint with the host's answer to whatever it
// suspended on; persisting the checkpoint and invoking the resumer
// out-of-band is the host's job, not this package's.
func (s *Script) Run() (*Result, error) {
	vm := s.newVM()
	value, susp, err := vm.Run(s.compiled.Script)
	return newResult(vm, value, susp, err)
}

// RunSync is a convenience for scripts known never to suspend: it runs
// to completion and treats a suspend as an error, so a host that never
// registers a suspending built-in doesn't have to handle the Result
// wrapper at all.
func (s *Script) RunSync() (bytecode.Value, error) {
	res, err := s.Run()
	if err != nil {
		return bytecode.Nil(), err
	}
	if res.Suspended {
		return bytecode.Nil(), fmt.Errorf("jactl: script suspended but RunSync does not support resumption; use Run")
	}
	return res.Value, nil
}

// Compiled exposes the underlying compiled program, e.g. so a host can
// pass it to Context.RecoverCheckpoint without recompiling.
func (s *Script) Compiled() *bytecode.Compiled { return s.compiled }
