// Package classfiletest assembles minimal, valid class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Access flags used by the builder; they match the class-file format.
const (
	AccPublic     uint16 = 0x0001
	AccFinal      uint16 = 0x0010
	AccSuper      uint16 = 0x0020
	AccInterface  uint16 = 0x0200
	AccAbstract   uint16 = 0x0400
	AccAnnotation uint16 = 0x2000
	AccEnum       uint16 = 0x4000
)

type member struct {
	access      uint16
	name        string
	descriptor  string
	annotations []string
}

// Builder describes one class. Names are binary names (a.b.C$D).
type Builder struct {
	name        string
	super       string
	access      uint16
	interfaces  []string
	fields      []member
	methods     []member
	annotations []string
	references  []string
	source      string
	major       uint16
	longs       []int64
}

// New starts a public class extending java.lang.Object.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		super:  "java.lang.Object",
		access: AccPublic | AccSuper,
		major:  61,
	}
}

// Super sets the superclass; an empty name produces a root class.
func (b *Builder) Super(name string) *Builder { b.super = name; return b }

func (b *Builder) Access(flags uint16) *Builder { b.access = flags; return b }

func (b *Builder) Interface() *Builder {
	b.access = AccPublic | AccInterface | AccAbstract
	return b
}

func (b *Builder) Implements(names ...string) *Builder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

func (b *Builder) Field(name, descriptor string, annotations ...string) *Builder {
	b.fields = append(b.fields, member{access: AccPublic, name: name, descriptor: descriptor, annotations: annotations})
	return b
}

func (b *Builder) Method(name, descriptor string, annotations ...string) *Builder {
	b.methods = append(b.methods, member{access: AccPublic, name: name, descriptor: descriptor, annotations: annotations})
	return b
}

// Annotate adds class annotations. Each carries a value array so that
// element values have to be skipped when reading.
func (b *Builder) Annotate(names ...string) *Builder {
	b.annotations = append(b.annotations, names...)
	return b
}

// References adds constant-pool class entries, as method bodies would.
func (b *Builder) References(names ...string) *Builder {
	b.references = append(b.references, names...)
	return b
}

// Long adds a long constant, which occupies two pool slots.
func (b *Builder) Long(v int64) *Builder { b.longs = append(b.longs, v); return b }

func (b *Builder) Source(file string) *Builder { b.source = file; return b }

func (b *Builder) Version(major uint16) *Builder { b.major = major; return b }

type pool struct {
	buf   bytes.Buffer
	count uint16
	utf8  map[string]uint16
	class map[string]uint16
}

func newPool() *pool {
	return &pool{count: 1, utf8: map[string]uint16{}, class: map[string]uint16{}}
}

func (p *pool) addUtf8(s string) uint16 {
	if idx, ok := p.utf8[s]; ok {
		return idx
	}
	p.buf.WriteByte(1)
	writeU2(&p.buf, uint16(len(s)))
	p.buf.WriteString(s)
	idx := p.count
	p.count++
	p.utf8[s] = idx
	return idx
}

// addClass takes a binary name or an array descriptor.
func (p *pool) addClass(name string) uint16 {
	internal := strings.ReplaceAll(name, ".", "/")
	if idx, ok := p.class[internal]; ok {
		return idx
	}
	nameIdx := p.addUtf8(internal)
	p.buf.WriteByte(7)
	writeU2(&p.buf, nameIdx)
	idx := p.count
	p.count++
	p.class[internal] = idx
	return idx
}

func (p *pool) addLong(v int64) {
	p.buf.WriteByte(5)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	p.buf.Write(b[:])
	p.count += 2
}

func writeU2(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU4(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func descriptorOf(name string) string {
	return "L" + strings.ReplaceAll(name, ".", "/") + ";"
}

func (p *pool) annotationsAttribute(names []string) []byte {
	var body bytes.Buffer
	writeU2(&body, uint16(len(names)))
	for _, n := range names {
		writeU2(&body, p.addUtf8(descriptorOf(n)))
		writeU2(&body, 1)
		writeU2(&body, p.addUtf8("value"))
		body.WriteByte('[')
		writeU2(&body, 2)
		body.WriteByte('s')
		writeU2(&body, p.addUtf8("text"))
		body.WriteByte('e')
		writeU2(&body, p.addUtf8("Ljava/lang/annotation/RetentionPolicy;"))
		writeU2(&body, p.addUtf8("RUNTIME"))
	}

	var attr bytes.Buffer
	writeU2(&attr, p.addUtf8("RuntimeVisibleAnnotations"))
	writeU4(&attr, uint32(body.Len()))
	attr.Write(body.Bytes())
	return attr.Bytes()
}

func (p *pool) members(ms []member) []byte {
	var out bytes.Buffer
	writeU2(&out, uint16(len(ms)))
	for _, m := range ms {
		writeU2(&out, m.access)
		writeU2(&out, p.addUtf8(m.name))
		writeU2(&out, p.addUtf8(m.descriptor))
		if len(m.annotations) == 0 {
			writeU2(&out, 0)
			continue
		}
		writeU2(&out, 1)
		out.Write(p.annotationsAttribute(m.annotations))
	}
	return out.Bytes()
}

// Bytes encodes the class file.
func (b *Builder) Bytes() []byte {
	p := newPool()

	var body bytes.Buffer
	writeU2(&body, b.access)
	writeU2(&body, p.addClass(b.name))
	if b.super == "" {
		writeU2(&body, 0)
	} else {
		writeU2(&body, p.addClass(b.super))
	}
	writeU2(&body, uint16(len(b.interfaces)))
	for _, iface := range b.interfaces {
		writeU2(&body, p.addClass(iface))
	}
	body.Write(p.members(b.fields))
	body.Write(p.members(b.methods))

	var attrs [][]byte
	if b.source != "" {
		var attr bytes.Buffer
		writeU2(&attr, p.addUtf8("SourceFile"))
		writeU4(&attr, 2)
		writeU2(&attr, p.addUtf8(b.source))
		attrs = append(attrs, attr.Bytes())
	}
	if len(b.annotations) > 0 {
		attrs = append(attrs, p.annotationsAttribute(b.annotations))
	}
	writeU2(&body, uint16(len(attrs)))
	for _, a := range attrs {
		body.Write(a)
	}

	for _, ref := range b.references {
		p.addClass(ref)
	}
	for _, v := range b.longs {
		p.addLong(v)
	}

	var out bytes.Buffer
	writeU4(&out, 0xCAFEBABE)
	writeU2(&out, 0)
	writeU2(&out, b.major)
	writeU2(&out, p.count)
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}
