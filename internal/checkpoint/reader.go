package checkpoint

import (
	"bytes"
	"fmt"
	"math"
	"math/big"

	"github.com/jactl-lang/jactl/internal/bytecode"
)

type reader struct {
	buf     *bytes.Reader
	refs    map[int32]bytecode.Value
	nextRef int32
}

func newReader(data []byte) *reader {
	return &reader{buf: bytes.NewReader(data), refs: make(map[int32]bytecode.Value)}
}

func (r *reader) byte() (byte, error) { return r.buf.ReadByte() }

func (r *reader) mustByte() byte {
	b, _ := r.buf.ReadByte()
	return b
}

func (r *reader) varint() (int64, error) {
	var u uint64
	var shift uint
	for {
		b, err := r.buf.ReadByte()
		if err != nil {
			return 0, err
		}
		u |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	n := int64(u>>1) ^ -int64(u&1)
	return n, nil
}

func (r *reader) str() (string, error) {
	n, err := r.varint()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := readFull(r.buf, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *reader) bytesRaw() ([]byte, error) {
	n, err := r.varint()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := readFull(r.buf, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(rd *bytes.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := rd.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// value decodes one tagged Value. classes resolves a CLASS instance's
// FQName back to the ClassDescriptor the restored Instance points at —
// supplied by the caller's program (the script being resumed must carry
// the same class definitions registered under that name).
func (r *reader) value(classes map[string]*bytecode.ClassDescriptor) (bytecode.Value, error) {
	tag, err := r.byte()
	if err != nil {
		return bytecode.Nil(), err
	}
	switch tag {
	case tagNull:
		return bytecode.Nil(), nil
	case tagBool:
		b := r.mustByte()
		return bytecode.Bool(b != 0), nil
	case tagByte:
		n, err := r.varint()
		return bytecode.Byte(byte(n)), err
	case tagInt:
		n, err := r.varint()
		return bytecode.Int(int32(n)), err
	case tagLong:
		n, err := r.varint()
		return bytecode.Long(n), err
	case tagDouble:
		var buf [8]byte
		if _, err := readFull(r.buf, buf[:]); err != nil {
			return bytecode.Nil(), err
		}
		bits := uint64(0)
		for i := 7; i >= 0; i-- {
			bits = bits<<8 | uint64(buf[i])
		}
		return bytecode.Double(math.Float64frombits(bits)), nil
	case tagDecimal:
		s, err := r.str()
		if err != nil {
			return bytecode.Nil(), err
		}
		rat, ok := new(big.Rat).SetString(s)
		if !ok {
			return bytecode.Nil(), fmt.Errorf("checkpoint: bad decimal literal %q", s)
		}
		return bytecode.Decimal(rat), nil
	case tagString:
		s, err := r.str()
		return bytecode.Str(s), err
	case tagList, tagArray:
		return r.list(classes)
	case tagMap:
		return r.mapValue(classes)
	case tagInstance:
		return r.instance(classes)
	case tagRef:
		id, err := r.varint()
		if err != nil {
			return bytecode.Nil(), err
		}
		v, ok := r.refs[int32(id)]
		if !ok {
			return bytecode.Nil(), fmt.Errorf("checkpoint: dangling back-reference %d", id)
		}
		return v, nil
	default:
		return bytecode.Nil(), fmt.Errorf("checkpoint: unknown value tag %d", tag)
	}
}

func (r *reader) list(classes map[string]*bytecode.ClassDescriptor) (bytecode.Value, error) {
	l := bytecode.NewList(nil)
	v := bytecode.ListVal(l)
	r.refs[r.nextRef] = v
	r.nextRef++
	n, err := r.varint()
	if err != nil {
		return bytecode.Nil(), err
	}
	for i := int64(0); i < n; i++ {
		ev, err := r.value(classes)
		if err != nil {
			return bytecode.Nil(), err
		}
		l.Append(ev)
	}
	return v, nil
}

func (r *reader) mapValue(classes map[string]*bytecode.ClassDescriptor) (bytecode.Value, error) {
	m := bytecode.NewMap()
	v := bytecode.MapVal(m)
	r.refs[r.nextRef] = v
	r.nextRef++
	n, err := r.varint()
	if err != nil {
		return bytecode.Nil(), err
	}
	for i := int64(0); i < n; i++ {
		k, err := r.str()
		if err != nil {
			return bytecode.Nil(), err
		}
		ev, err := r.value(classes)
		if err != nil {
			return bytecode.Nil(), err
		}
		m.Set(k, ev)
	}
	return v, nil
}

func (r *reader) instance(classes map[string]*bytecode.ClassDescriptor) (bytecode.Value, error) {
	fq, err := r.str()
	if err != nil {
		return bytecode.Nil(), err
	}
	desc := classes[fq]
	if desc == nil {
		return bytecode.Nil(), fmt.Errorf("checkpoint: class %q not found while restoring; script being resumed must define the same classes", fq)
	}
	inst := bytecode.NewInstance(desc)
	v := bytecode.InstanceVal(inst)
	r.refs[r.nextRef] = v
	r.nextRef++
	n, err := r.varint()
	if err != nil {
		return bytecode.Nil(), err
	}
	for i := int64(0); i < n; i++ {
		name, err := r.str()
		if err != nil {
			return bytecode.Nil(), err
		}
		fv, err := r.value(classes)
		if err != nil {
			return bytecode.Nil(), err
		}
		inst.Fields[name] = fv
	}
	return v, nil
}
