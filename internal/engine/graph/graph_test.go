package graph

import (
	"context"
	"errors"
	"testing"

	"archimport/internal/engine/classfile"
	"archimport/internal/engine/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desc(name, super string, refs ...string) *classfile.ClassDescriptor {
	d := &classfile.ClassDescriptor{Name: name, SuperclassName: super, Modifiers: classfile.AccPublic}
	for _, r := range refs {
		d.Fields = append(d.Fields, classfile.Member{Name: "f" + r, Types: []string{r}})
	}
	return d
}

func dirLoc(name string) location.Location {
	return location.FromFile("/classes", location.ClassNameToResource(name))
}

func jarLoc(name string) location.Location {
	return location.FromArchiveEntry("/lib/dep.jar", location.ClassNameToResource(name))
}

func names(classes []*Class) []string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		out = append(out, c.Name())
	}
	return out
}

func pkgNames(pkgs []*Package) []string {
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.Name())
	}
	return out
}

func freeze(t *testing.T, b *Builder) *Classes {
	t.Helper()
	classes, err := b.Freeze(context.Background())
	require.NoError(t, err)
	return classes
}

func TestBuilder_ResolvedAndStubs(t *testing.T) {
	b := NewBuilder(nil)
	require.NoError(t, b.Add(0, dirLoc("a.Service"), desc("a.Service", "java.lang.Object", "a.Repo", "ext.Client")))
	require.NoError(t, b.Add(1, dirLoc("a.Repo"), desc("a.Repo", "java.lang.Object")))

	classes := freeze(t, b)
	assert.Equal(t, []string{"a.Repo", "a.Service"}, classes.Names())
	assert.Equal(t, []string{"ext.Client", "java.lang.Object"}, classes.Stubs())
	assert.Equal(t, 2, classes.Len())

	svc, ok := classes.Get("a.Service")
	require.True(t, ok)
	assert.False(t, svc.IsStub())
	super, ok := svc.Superclass()
	require.True(t, ok)
	assert.True(t, super.IsStub())
	assert.Equal(t, "java.lang.Object", super.Name())
	assert.Equal(t, []string{"a.Repo", "ext.Client", "java.lang.Object"}, names(svc.DirectDependencies()))

	repo, _ := classes.Get("a.Repo")
	assert.Equal(t, repo, svc.DirectDependencies()[0])

	assert.True(t, classes.Contain("a.Repo"))
	assert.False(t, classes.Contain("ext.Client"))
	_, ok = classes.Get("ext.Client")
	assert.False(t, ok)
	stub, ok := classes.Lookup("ext.Client")
	require.True(t, ok)
	assert.True(t, stub.IsStub())
	assert.Nil(t, stub.Package())
	assert.Nil(t, stub.Descriptor())
}

func TestBuilder_StubUpgradedRegardlessOfOrder(t *testing.T) {
	b := NewBuilder(nil)
	// a.A references a.B before a.B arrives, and a.B references a.A back.
	require.NoError(t, b.Add(0, dirLoc("a.A"), desc("a.A", "", "a.B")))
	require.NoError(t, b.Add(1, dirLoc("a.B"), desc("a.B", "", "a.A")))

	classes := freeze(t, b)
	assert.Empty(t, classes.Stubs())
	a, _ := classes.Get("a.A")
	bNode, _ := classes.Get("a.B")
	assert.Equal(t, []*Class{bNode}, a.DirectDependencies())
	assert.Equal(t, []*Class{a}, bNode.DirectDependencies())
}

func TestBuilder_FirstSeenWinsByEnumerationOrder(t *testing.T) {
	fromDir := desc("a.Dup", "", "dir.Only")
	fromJar := desc("a.Dup", "", "jar.Only")

	// Arrival order differs, outcome does not.
	for _, arrivals := range [][]int{{0, 1}, {1, 0}} {
		b := NewBuilder(nil)
		for _, order := range arrivals {
			if order == 0 {
				require.NoError(t, b.Add(0, dirLoc("a.Dup"), fromDir))
			} else {
				require.NoError(t, b.Add(1, jarLoc("a.Dup"), fromJar))
			}
		}
		classes := freeze(t, b)

		dup, ok := classes.Get("a.Dup")
		require.True(t, ok)
		assert.Same(t, fromDir, dup.Descriptor())
		assert.Equal(t, location.KindFile, dup.Source().Kind())
		assert.Equal(t, []string{"dir.Only"}, classes.Stubs(), "stubs of the displaced duplicate are pruned")
		assert.Equal(t, 1, classes.Len())
	}
}

func TestBuilder_FreezeRejectsChanges(t *testing.T) {
	b := NewBuilder(nil)
	require.NoError(t, b.Add(0, dirLoc("a.A"), desc("a.A", "")))
	b.AddFailure(errors.New("decode failed"))
	b.AddFailure(nil)
	assert.Equal(t, 1, b.Len())

	classes := freeze(t, b)
	assert.Len(t, classes.Issues(), 1)

	err := b.Add(1, dirLoc("a.B"), desc("a.B", ""))
	assert.ErrorIs(t, err, ErrFrozen)
	_, err = b.Freeze(context.Background())
	assert.ErrorIs(t, err, ErrFrozen)

	b.AddFailure(errors.New("late"))
	assert.Len(t, classes.Issues(), 1)
	assert.False(t, classes.Contain("a.B"))
}

func TestBuilder_RejectsNamelessDescriptor(t *testing.T) {
	b := NewBuilder(nil)
	assert.Error(t, b.Add(0, dirLoc("x.Y"), &classfile.ClassDescriptor{}))
	assert.Error(t, b.Add(0, dirLoc("x.Y"), nil))
}

func TestPackageTree(t *testing.T) {
	b := NewBuilder(nil)
	for i, name := range []string{
		"java.lang.Object",
		"java.lang.String",
		"java.lang.reflect.Method",
		"java.lang.reflect.Field",
		"java.util.List",
		"org.acme.App",
		"TopLevel",
	} {
		require.NoError(t, b.Add(i, dirLoc(name), desc(name, "")))
	}
	classes := freeze(t, b)

	root := classes.DefaultPackage()
	require.NotNil(t, root)
	assert.True(t, root.IsDefault())
	assert.Equal(t, "<default>", root.String())
	assert.Equal(t, []string{"TopLevel"}, names(root.Classes()))
	assert.Len(t, root.AllClasses(), 7)

	assert.True(t, root.ContainsPackage("java.lang"))
	assert.True(t, root.ContainsPackage("java.lang.reflect"))
	assert.False(t, root.ContainsPackage("lang"))
	assert.True(t, classes.ContainPackage("org.acme"))
	assert.False(t, classes.ContainPackage("org.other"))

	lang, ok := classes.GetPackage("java.lang")
	require.True(t, ok)
	assert.Equal(t, "java.lang", lang.Name())
	assert.Equal(t, "lang", lang.RelativeName())
	assert.Equal(t, "java", lang.Parent().Name())
	assert.Equal(t, []string{"java.lang.Object", "java.lang.String"}, names(lang.Classes()))
	assert.Equal(t, []string{
		"java.lang.Object",
		"java.lang.String",
		"java.lang.reflect.Field",
		"java.lang.reflect.Method",
	}, names(lang.AllClasses()))
	assert.True(t, lang.ContainsClass("java.lang.String"))
	assert.False(t, lang.ContainsClass("java.lang.reflect.Method"))

	reflect, ok := lang.GetPackage("reflect")
	require.True(t, ok)
	assert.True(t, reflect.ContainsClass("java.lang.reflect.Method"))

	java, _ := classes.GetPackage("java")
	assert.Equal(t, []string{"java.lang", "java.util"}, pkgNames(java.Subpackages()))
	assert.Equal(t, []string{"java.lang", "java.lang.reflect", "java.util"}, pkgNames(java.AllSubpackages()))
	assert.Equal(t, []string{"java", "org"}, pkgNames(root.Subpackages()))

	method, _ := classes.Get("java.lang.reflect.Method")
	assert.Equal(t, reflect, method.Package())
	assert.Equal(t, "Method", method.SimpleName())

	def, ok := classes.GetPackage("")
	require.True(t, ok)
	assert.Equal(t, root, def)
}

func TestPackageTree_EmptyGraphHasDefaultPackage(t *testing.T) {
	classes := freeze(t, NewBuilder(nil))
	assert.True(t, classes.IsEmpty())
	require.NotNil(t, classes.DefaultPackage())
	assert.Empty(t, classes.DefaultPackage().Classes())
	assert.Empty(t, classes.DefaultPackage().Subpackages())
}

func TestBuildPackageTree_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Class{name: "a.B"}
	_, err := BuildPackageTree(ctx, []*Class{c})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEach_StopsEarly(t *testing.T) {
	b := NewBuilder(nil)
	for i, name := range []string{"a.A", "a.B", "a.C"} {
		require.NoError(t, b.Add(i, dirLoc(name), desc(name, "")))
	}
	classes := freeze(t, b)

	var seen []string
	classes.Each(func(c *Class) bool {
		seen = append(seen, c.Name())
		return len(seen) < 2
	})
	assert.Equal(t, []string{"a.A", "a.B"}, seen)
}
