package importopt

import (
	"testing"

	"archimport/internal/engine/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mainClass    = location.FromFile("/work/app/target/classes", "com/acme/Service.class")
	testClass    = location.FromFile("/work/app/target/test-classes", "com/acme/ServiceTest.class")
	gradleTest   = location.FromFile("/work/app/build/classes/java/test", "com/acme/GradleTest.class")
	intellijTest = location.FromFile("/work/app/out/test/app", "com/acme/IdeaTest.class")
	jarClass     = location.FromArchiveEntry("/repo/lib/dep.jar", "org/dep/Util.class")
	testJarClass = location.FromArchiveEntry("/repo/lib/dep-tests.jar", "org/dep/UtilTest.class")
	jrtClass     = location.FromModuleDir("/jdk/modules/java.base", "java.base", "java/lang/Object.class")
	packageInfo  = location.FromFile("/work/app/target/classes", "com/acme/package-info.class")
)

func TestOptions_EmptyIncludesEverything(t *testing.T) {
	var opts Options
	assert.True(t, opts.IsEmpty())
	for _, loc := range []location.Location{mainClass, testClass, jarClass, jrtClass} {
		assert.True(t, opts.Includes(loc), loc.URI())
	}
}

func TestOptions_Conjunction(t *testing.T) {
	opts := New(DoNotIncludeTests, DoNotIncludeJars)
	assert.Equal(t, 2, opts.Len())

	assert.True(t, opts.Includes(mainClass))
	assert.False(t, opts.Includes(testClass))
	assert.False(t, opts.Includes(jarClass))
	assert.True(t, opts.Includes(jrtClass))
}

func TestOptions_WithIsImmutable(t *testing.T) {
	base := New(DoNotIncludeTests)
	extended := base.With(DoNotIncludeArchives, nil)

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, extended.Len())
	assert.True(t, base.Includes(jarClass))
	assert.False(t, extended.Includes(jarClass))
}

func TestTestClassification(t *testing.T) {
	for _, loc := range []location.Location{testClass, gradleTest, intellijTest, testJarClass} {
		assert.True(t, IsTestLocation(loc), loc.URI())
		assert.True(t, OnlyIncludeTests.Includes(loc), loc.URI())
		assert.False(t, DoNotIncludeTests.Includes(loc), loc.URI())
	}
	for _, loc := range []location.Location{mainClass, jarClass, jrtClass} {
		assert.False(t, IsTestLocation(loc), loc.URI())
	}
}

func TestArchiveOptions(t *testing.T) {
	assert.False(t, DoNotIncludeJars.Includes(jarClass))
	assert.True(t, DoNotIncludeJars.Includes(jrtClass))

	assert.True(t, DoNotIncludeRuntimeModules.Includes(jarClass))
	assert.False(t, DoNotIncludeRuntimeModules.Includes(jrtClass))

	assert.False(t, DoNotIncludeArchives.Includes(jarClass))
	assert.False(t, DoNotIncludeArchives.Includes(jrtClass))
	assert.True(t, DoNotIncludeArchives.Includes(mainClass))
}

func TestAmbientDefault(t *testing.T) {
	opts := AmbientDefault()
	assert.True(t, opts.Includes(mainClass))
	assert.False(t, opts.Includes(jarClass))
	assert.False(t, opts.Includes(jrtClass))
}

func TestDoNotIncludePackageInfos(t *testing.T) {
	assert.False(t, DoNotIncludePackageInfos.Includes(packageInfo))
	assert.True(t, DoNotIncludePackageInfos.Includes(mainClass))
}

func TestPatternOptions(t *testing.T) {
	exclude, err := ExcludePatterns("**/generated/**", " ")
	require.NoError(t, err)
	generated := location.FromFile("/work/app/target/classes", "com/acme/generated/Stub.class")
	assert.False(t, exclude.Includes(generated))
	assert.True(t, exclude.Includes(mainClass))

	include, err := IncludePatterns("jar:**")
	require.NoError(t, err)
	assert.True(t, include.Includes(jarClass))
	assert.False(t, include.Includes(mainClass))

	all, err := IncludePatterns()
	require.NoError(t, err)
	assert.True(t, all.Includes(mainClass))

	_, err = ExcludePatterns("[unterminated")
	assert.Error(t, err)
}

func TestOnlyModules(t *testing.T) {
	opt := OnlyModules("java.sql")
	assert.False(t, opt.Includes(jrtClass))
	assert.True(t, opt.Includes(mainClass))
	assert.True(t, OnlyModules("java.base").Includes(jrtClass))
}

func TestFilter(t *testing.T) {
	kept, excluded := New(DoNotIncludeTests).Filter([]location.Location{mainClass, testClass, jarClass})
	assert.Equal(t, []location.Location{mainClass, jarClass}, kept)
	assert.Equal(t, 1, excluded)
}

func TestFromSettings(t *testing.T) {
	opts, err := FromSettings(Settings{})
	require.NoError(t, err)
	assert.True(t, opts.IsEmpty())

	opts, err = FromSettings(Settings{
		ExcludeTests:     true,
		ExcludeLocations: []string{"**/dep.jar!/**"},
	})
	require.NoError(t, err)
	assert.True(t, opts.Includes(mainClass))
	assert.False(t, opts.Includes(testClass))
	assert.False(t, opts.Includes(jarClass))
	assert.False(t, opts.Includes(testJarClass))
	assert.True(t, opts.Includes(jrtClass))

	_, err = FromSettings(Settings{ExcludeLocations: []string{"[bad"}})
	assert.Error(t, err)
}

func TestAmbientFromSettings(t *testing.T) {
	opts := AmbientFromSettings(Settings{})
	for _, loc := range []location.Location{mainClass, testClass, jarClass, jrtClass} {
		assert.Equal(t, AmbientDefault().Includes(loc), opts.Includes(loc), loc.URI())
	}

	opts = AmbientFromSettings(Settings{IncludeRuntimeModules: true})
	assert.True(t, opts.Includes(jrtClass))
	assert.False(t, opts.Includes(jarClass))

	assert.True(t, AmbientFromSettings(Settings{IncludeArchives: true, IncludeRuntimeModules: true}).IsEmpty())
}
