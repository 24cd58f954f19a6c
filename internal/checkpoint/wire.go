// Package checkpoint implements the checkpoint wire format: a
// length-prefixed sequence of frames (function id, pc, typed locals,
// operand stack) followed by a tagged-value region for the reachable
// value graph, with variable-length zig-zag integers, length-prefixed
// UTF-8 strings, and a version byte first, following the same binary
// wire-format conventions (version byte, length-prefixed strings,
// little-endian integer helpers) used to serialize a compiled Chunk,
// generalized to serialize one live Continuation plus its value graph.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jactl-lang/jactl/internal/bytecode"
	"github.com/jactl-lang/jactl/internal/types"
)

// wireVersion is the first byte of every checkpoint blob; Load rejects
// anything else outright rather than guessing at a forward-compatible
// read: incompatible versions must cause recovery to fail cleanly.
const wireVersion byte = 1

// Value tags. The numeric ones deliberately do NOT reuse types.Kind's own
// int values: the wire format is a durable external contract, so its tag
// space must not shift if Kind's iota ordering ever does.
const (
	tagNull byte = iota
	tagBool
	tagByte
	tagInt
	tagLong
	tagDouble
	tagDecimal
	tagString
	tagList
	tagArray
	tagMap
	tagInstance
	tagRef // back-pointer to an already-written composite, by id
)

type writer struct {
	buf     bytes.Buffer
	seen    map[any]int32
	nextRef int32
}

func newWriter() *writer { return &writer{seen: make(map[any]int32)} }

func (w *writer) byte(b byte) { w.buf.WriteByte(b) }

// varint writes n zig-zag encoded so small negative numbers stay small on
// the wire, then as a standard LEB128 varint.
func (w *writer) varint(n int64) {
	u := uint64((n << 1) ^ (n >> 63))
	for u >= 0x80 {
		w.buf.WriteByte(byte(u) | 0x80)
		u >>= 7
	}
	w.buf.WriteByte(byte(u))
}

func (w *writer) str(s string) {
	w.varint(int64(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) bytesRaw(b []byte) {
	w.varint(int64(len(b)))
	w.buf.Write(b)
}

// value writes one tagged Value, recording composite values (List/Map/
// Instance) by pointer identity in w.seen so a later encounter of the
// same pointer — a cycle or simply shared structure — writes a tagRef
// back-pointer instead of re-encoding (and, for a true self-cycle,
// instead of recursing forever) so circular references round-trip.
func (w *writer) value(v bytecode.Value) error {
	switch v.Kind {
	case types.NULL_TYPE:
		w.byte(tagNull)
	case types.BOOL:
		w.byte(tagBool)
		if v.Truthy() {
			w.byte(1)
		} else {
			w.byte(0)
		}
	case types.BYTE:
		w.byte(tagByte)
		i, _ := v.AsInt64()
		w.varint(i)
	case types.INT:
		w.byte(tagInt)
		i, _ := v.AsInt64()
		w.varint(i)
	case types.LONG:
		w.byte(tagLong)
		i, _ := v.AsInt64()
		w.varint(i)
	case types.DOUBLE:
		w.byte(tagDouble)
		f, _ := v.AsFloat64()
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		w.buf.Write(buf[:])
	case types.DECIMAL:
		w.byte(tagDecimal)
		r, _ := v.AsRat()
		w.str(r.RatString())
	case types.STRING:
		w.byte(tagString)
		w.str(v.AsString())
	case types.LIST, types.ARRAY:
		return w.compositeList(v)
	case types.MAP:
		return w.compositeMap(v)
	case types.CLASS:
		return w.compositeInstance(v)
	default:
		return fmt.Errorf("checkpoint: value kind %s is not checkpointable", v.Kind)
	}
	return nil
}

func (w *writer) refOrMark(key any) (ref int32, alreadyWritten bool) {
	if id, ok := w.seen[key]; ok {
		w.byte(tagRef)
		w.varint(int64(id))
		return id, true
	}
	id := w.nextRef
	w.nextRef++
	w.seen[key] = id
	return id, false
}

func (w *writer) compositeList(v bytecode.Value) error {
	var key any
	var elems []bytecode.Value
	if v.Kind == types.ARRAY {
		key = v.AsArray()
		elems = v.AsArray().List.Elements
	} else {
		key = v.AsList()
		elems = v.AsList().Elements
	}
	if _, already := w.refOrMark(key); already {
		return nil
	}
	w.byte(tagList)
	w.varint(int64(len(elems)))
	for _, e := range elems {
		if err := w.value(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) compositeMap(v bytecode.Value) error {
	m := v.AsMap()
	if _, already := w.refOrMark(m); already {
		return nil
	}
	w.byte(tagMap)
	keys := m.Keys()
	w.varint(int64(len(keys)))
	for _, k := range keys {
		w.str(k)
		val, _ := m.Get(k)
		if err := w.value(val); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) compositeInstance(v bytecode.Value) error {
	inst := v.AsInstance()
	if _, already := w.refOrMark(inst); already {
		return nil
	}
	w.byte(tagInstance)
	w.str(inst.Class.FQName)
	w.varint(int64(len(inst.FieldOrder)))
	for _, name := range inst.FieldOrder {
		w.str(name)
		if err := w.value(inst.Fields[name]); err != nil {
			return err
		}
	}
	return nil
}

