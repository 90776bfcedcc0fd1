// # internal/engine/graph/builder.go
package graph

import (
	"context"
	"log/slog"
	"sort"

	domainerrors "archimport/internal/core/errors"
	"archimport/internal/engine/classfile"
	"archimport/internal/engine/location"
	"archimport/internal/shared/observability"
)

// ErrFrozen is returned when a frozen builder is modified.
var ErrFrozen = domainerrors.New(domainerrors.CodeFrozen, "class graph is frozen")

// Builder assembles decoded classes into a graph. It is not safe for
// concurrent use: the importer feeds it from a single writer goroutine.
//
// Duplicates are resolved by enumeration order, not arrival order, so the
// result does not depend on how decoding work was scheduled.
type Builder struct {
	logger *slog.Logger
	nodes  map[string]*Class
	issues []error
	frozen bool
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, nodes: make(map[string]*Class)}
}

// Add records the class decoded from loc. order is the position of loc in
// the enumeration; among duplicates of one name the lowest order wins.
func (b *Builder) Add(order int, loc location.Location, desc *classfile.ClassDescriptor) error {
	if b.frozen {
		return ErrFrozen
	}
	if desc == nil || desc.Name == "" {
		return domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeInternal, "descriptor without class name"),
			domainerrors.CtxLocation, loc.URI())
	}

	node, ok := b.nodes[desc.Name]
	switch {
	case !ok:
		node = &Class{name: desc.Name}
		b.nodes[desc.Name] = node
	case node.stub:
		// forward reference now imported
	case node.order <= order:
		b.logger.Debug("ignoring duplicate class", "class", desc.Name, "kept", node.source.URI(), "ignored", loc.URI())
		return nil
	default:
		b.logger.Debug("earlier location supersedes duplicate class", "class", desc.Name, "kept", loc.URI(), "ignored", node.source.URI())
	}

	node.stub = false
	node.order = order
	node.source = loc
	node.desc = desc

	for _, ref := range desc.ReferencedTypes() {
		if _, exists := b.nodes[ref]; !exists {
			b.nodes[ref] = &Class{name: ref, stub: true}
		}
	}
	return nil
}

// AddFailure records a non-fatal problem met during the run.
func (b *Builder) AddFailure(err error) {
	if err == nil || b.frozen {
		return
	}
	b.issues = append(b.issues, err)
}

// Len is the number of imported (non-stub) classes so far.
func (b *Builder) Len() int {
	n := 0
	for _, node := range b.nodes {
		if !node.stub {
			n++
		}
	}
	return n
}

// Freeze finalises the graph and builds the package tree. Stubs that only a
// superseded duplicate referenced are dropped. The builder rejects any
// further change afterwards.
func (b *Builder) Freeze(ctx context.Context) (*Classes, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	b.frozen = true

	referenced := make(map[string]bool)
	for _, node := range b.nodes {
		if node.stub {
			continue
		}
		for _, ref := range node.desc.ReferencedTypes() {
			referenced[ref] = true
		}
	}

	classes := &Classes{
		nodes:  make(map[string]*Class, len(b.nodes)),
		issues: append([]error(nil), b.issues...),
	}
	for name, node := range b.nodes {
		if node.stub && !referenced[name] {
			continue
		}
		node.owner = classes
		classes.nodes[name] = node
		if node.stub {
			classes.stubs = append(classes.stubs, name)
		} else {
			classes.names = append(classes.names, name)
		}
	}
	sort.Strings(classes.names)
	sort.Strings(classes.stubs)

	root, err := BuildPackageTree(ctx, classes.imported())
	if err != nil {
		return nil, err
	}
	classes.root = root

	observability.GraphClasses.Set(float64(len(classes.names)))
	observability.GraphStubs.Set(float64(len(classes.stubs)))
	b.logger.Debug("class graph frozen", "classes", len(classes.names), "stubs", len(classes.stubs), "issues", len(classes.issues))
	return classes, nil
}
