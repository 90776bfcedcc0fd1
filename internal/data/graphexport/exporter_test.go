package graphexport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"archimport/internal/core/ports"
	"archimport/internal/engine/classfile"
	"archimport/internal/engine/graph"
	"archimport/internal/engine/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	cypher string
	params map[string]any
}

type fakeRunner struct {
	calls  []call
	failOn string
	closed bool
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) error {
	f.calls = append(f.calls, call{cypher: cypher, params: params})
	if f.failOn != "" && strings.Contains(cypher, f.failOn) {
		return errors.New("neo4j unavailable")
	}
	return nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

// batches returns the batch parameter of every call whose statement
// contains fragment.
func (f *fakeRunner) batches(fragment string) [][]map[string]any {
	var out [][]map[string]any
	for _, c := range f.calls {
		if strings.Contains(c.cypher, fragment) {
			out = append(out, c.params["batch"].([]map[string]any))
		}
	}
	return out
}

func buildClasses(t *testing.T) *graph.Classes {
	t.Helper()
	b := graph.NewBuilder(nil)
	descs := []*classfile.ClassDescriptor{
		{Name: "com.acme.Service", SuperclassName: "com.acme.Base", InterfaceNames: []string{"com.acme.api.Port"}},
		{Name: "com.acme.Base", SuperclassName: "java.lang.Object"},
		{Name: "com.acme.api.Port", SuperclassName: "java.lang.Object", Modifiers: classfile.AccInterface | classfile.AccAbstract},
	}
	for i, d := range descs {
		loc := location.FromFile("/work/classes", location.ClassNameToResource(d.Name))
		require.NoError(t, b.Add(i, loc, d))
	}
	classes, err := b.Freeze(context.Background())
	require.NoError(t, err)
	return classes
}

func names(rows []map[string]any) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestExporter_Consume(t *testing.T) {
	runner := &fakeRunner{}
	exp := New(runner, 0, nil)
	require.NoError(t, exp.Consume(context.Background(), ports.RunInfo{ID: "run-1"}, buildClasses(t)))

	assert.True(t, strings.HasPrefix(runner.calls[0].cypher, "CREATE INDEX"))

	pkgs := runner.batches("MERGE (p:JavaPackage")
	require.Len(t, pkgs, 1)
	assert.Equal(t, []string{"com", "com.acme", "com.acme.api"}, names(pkgs[0]))

	nesting := runner.batches("[:CONTAINS]")
	require.Len(t, nesting, 1)
	assert.Len(t, nesting[0], 2)

	classes := runner.batches("MERGE (c:JavaClass")
	require.Len(t, classes, 1)
	assert.Equal(t, []string{"com.acme.Base", "com.acme.Service", "com.acme.api.Port", "java.lang.Object"}, names(classes[0]))
	assert.Equal(t, true, classes[0][3]["stub"])
	assert.Equal(t, true, classes[0][2]["interface"])
	assert.Equal(t, "run-1", classes[0][0]["run"])

	extends := runner.batches("[:EXTENDS]->(b)")
	require.Len(t, extends, 1)
	assert.Contains(t, extends[0], map[string]any{"from": "com.acme.Service", "to": "com.acme.Base"})

	implements := runner.batches("[:IMPLEMENTS]->(b)")
	require.Len(t, implements, 1)
	assert.Equal(t, []map[string]any{{"from": "com.acme.Service", "to": "com.acme.api.Port"}}, implements[0])

	last := runner.calls[len(runner.calls)-1]
	assert.Contains(t, last.cypher, "DETACH DELETE")
	assert.Equal(t, "run-1", last.params["run"])
}

func TestExporter_Batches(t *testing.T) {
	runner := &fakeRunner{}
	exp := New(runner, 2, nil)
	require.NoError(t, exp.Consume(context.Background(), ports.RunInfo{ID: "run-2"}, buildClasses(t)))

	classes := runner.batches("MERGE (c:JavaClass")
	require.Len(t, classes, 2)
	assert.Len(t, classes[0], 2)
	assert.Len(t, classes[1], 2)
}

func TestExporter_PropagatesErrors(t *testing.T) {
	runner := &fakeRunner{failOn: "[:IMPLEMENTS]->(b)"}
	exp := New(runner, 0, nil)
	err := exp.Consume(context.Background(), ports.RunInfo{ID: "run-3"}, buildClasses(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implements edges")
	assert.Empty(t, runner.batches("[:DEPENDS_ON]->(b)"))
}

func TestExporter_CancelledContext(t *testing.T) {
	runner := &fakeRunner{}
	exp := New(runner, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := exp.Consume(ctx, ports.RunInfo{ID: "run-4"}, buildClasses(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestExporter_NameAndClose(t *testing.T) {
	runner := &fakeRunner{}
	exp := New(runner, 0, nil)
	assert.Equal(t, "neo4j", exp.Name())
	require.NoError(t, exp.Consume(context.Background(), ports.RunInfo{ID: "x"}, nil))
	assert.Empty(t, runner.calls)
	require.NoError(t, exp.Close(context.Background()))
	assert.True(t, runner.closed)
}
