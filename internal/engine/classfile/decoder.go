package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic opens every class file.
const Magic uint32 = 0xCAFEBABE

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed class file")

const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

const (
	attrSourceFile                = "SourceFile"
	attrRuntimeVisibleAnnotations = "RuntimeVisibleAnnotations"
)

// ClassFileDecoder reads the JVM class-file format. It is stateless and safe
// for concurrent use.
type ClassFileDecoder struct{}

func NewDecoder() ClassFileDecoder { return ClassFileDecoder{} }

type cpEntry struct {
	tag  byte
	utf8 string
	ref  uint16 // name index of Class entries
}

// reader is a bounds-checked big-endian cursor. The first failure sticks.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s at offset %d", ErrMalformed, fmt.Sprintf(format, args...), r.pos)
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail("unexpected end of data reading %d bytes", n)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u1() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

type decodeState struct {
	r    *reader
	pool []cpEntry
}

// Decode parses data. Any structural problem returns an error wrapping ErrMalformed.
func (ClassFileDecoder) Decode(data []byte) (*ClassDescriptor, error) {
	s := &decodeState{r: &reader{data: data}}
	r := s.r

	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrMalformed, magic)
	}
	desc := &ClassDescriptor{}
	desc.MinorVersion = r.u2()
	desc.MajorVersion = r.u2()

	s.readConstantPool()
	if r.err != nil {
		return nil, r.err
	}

	desc.Modifiers = Modifiers(r.u2())
	desc.Name = s.className(r.u2(), false)
	desc.SuperclassName = s.className(r.u2(), true)

	ifaceCount := int(r.u2())
	for i := 0; i < ifaceCount && r.err == nil; i++ {
		desc.InterfaceNames = append(desc.InterfaceNames, s.className(r.u2(), false))
	}

	desc.Fields = s.readMembers()
	desc.Methods = s.readMembers()

	attrCount := int(r.u2())
	for i := 0; i < attrCount && r.err == nil; i++ {
		name, body := s.readAttribute()
		switch name {
		case attrSourceFile:
			br := &reader{data: body}
			desc.SourceFile = s.utf8At(br.u2(), br)
			if br.err != nil {
				r.err = br.err
			}
		case attrRuntimeVisibleAnnotations:
			desc.Annotations = s.annotations(body)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data)-r.pos)
	}

	for _, e := range s.pool {
		if e.tag != tagClass {
			continue
		}
		if name := classRefName(s.pool[e.ref].utf8); name != "" {
			desc.constantTypes = append(desc.constantTypes, name)
		}
	}
	return desc, nil
}

func (s *decodeState) readConstantPool() {
	r := s.r
	count := int(r.u2())
	if r.err == nil && count == 0 {
		r.fail("empty constant pool")
		return
	}
	s.pool = make([]cpEntry, count)
	for i := 1; i < count && r.err == nil; i++ {
		tag := r.u1()
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			e.utf8 = string(r.take(n))
		case tagInteger, tagFloat:
			r.take(4)
		case tagLong, tagDouble:
			r.take(8)
			s.pool[i] = e
			// occupies two slots
			i++
			continue
		case tagClass:
			e.ref = r.u2()
		case tagString, tagMethodType, tagModule, tagPackage:
			r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			r.u2()
			r.u2()
		case tagMethodHandle:
			r.u1()
			r.u2()
		default:
			r.fail("unknown constant pool tag %d at index %d", tag, i)
		}
		s.pool[i] = e
	}
	if r.err != nil {
		return
	}
	for i, e := range s.pool {
		if e.tag != tagClass {
			continue
		}
		if int(e.ref) >= len(s.pool) || s.pool[e.ref].tag != tagUtf8 {
			r.fail("class entry %d points to invalid name index %d", i, e.ref)
			return
		}
	}
}

func (s *decodeState) utf8At(idx uint16, r *reader) string {
	if r.err != nil {
		return ""
	}
	if idx == 0 || int(idx) >= len(s.pool) || s.pool[idx].tag != tagUtf8 {
		r.fail("invalid utf8 index %d", idx)
		return ""
	}
	return s.pool[idx].utf8
}

func (s *decodeState) className(idx uint16, optional bool) string {
	r := s.r
	if r.err != nil {
		return ""
	}
	if idx == 0 && optional {
		return ""
	}
	if int(idx) >= len(s.pool) || s.pool[idx].tag != tagClass {
		r.fail("invalid class index %d", idx)
		return ""
	}
	return classRefName(s.pool[s.pool[idx].ref].utf8)
}

func (s *decodeState) readAttribute() (string, []byte) {
	r := s.r
	name := s.utf8At(r.u2(), r)
	length := r.u4()
	if r.err == nil && int64(length) > int64(len(r.data)-r.pos) {
		r.fail("attribute %q length %d exceeds data", name, length)
		return "", nil
	}
	return name, r.take(int(length))
}

func (s *decodeState) readMembers() []Member {
	r := s.r
	count := int(r.u2())
	var members []Member
	for i := 0; i < count && r.err == nil; i++ {
		m := Member{Modifiers: Modifiers(r.u2())}
		m.Name = s.utf8At(r.u2(), r)
		m.Descriptor = s.utf8At(r.u2(), r)
		m.Types = DescriptorTypes(m.Descriptor)

		attrCount := int(r.u2())
		for j := 0; j < attrCount && r.err == nil; j++ {
			name, body := s.readAttribute()
			if name == attrRuntimeVisibleAnnotations {
				m.Annotations = s.annotations(body)
			}
		}
		members = append(members, m)
	}
	return members
}

// annotations returns the top-level annotation types of an annotations
// attribute body. Element values are skipped.
func (s *decodeState) annotations(body []byte) []string {
	ar := &reader{data: body}
	count := int(ar.u2())
	var types []string
	for i := 0; i < count && ar.err == nil; i++ {
		types = append(types, s.annotation(ar))
	}
	if ar.err != nil {
		s.r.fail("bad annotations attribute: %v", ar.err)
		return nil
	}
	return types
}

func (s *decodeState) annotation(ar *reader) string {
	typeDesc := s.utf8At(ar.u2(), ar)
	pairs := int(ar.u2())
	for i := 0; i < pairs && ar.err == nil; i++ {
		ar.u2()
		s.skipElementValue(ar)
	}
	types := DescriptorTypes(typeDesc)
	if len(types) == 0 {
		ar.fail("annotation type %q is not a class descriptor", typeDesc)
		return ""
	}
	return types[0]
}

func (s *decodeState) skipElementValue(ar *reader) {
	tag := ar.u1()
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		ar.u2()
	case 'e':
		ar.u2()
		ar.u2()
	case '@':
		s.annotation(ar)
	case '[':
		n := int(ar.u2())
		for i := 0; i < n && ar.err == nil; i++ {
			s.skipElementValue(ar)
		}
	default:
		ar.fail("unknown element value tag %q", tag)
	}
}
