package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEngineDefault(t *testing.T) {
	d, engine, err := buildEngine("")
	require.NoError(t, err)
	assert.Equal(t, "Balanced", d.Name)
	assert.NotEmpty(t, engine.Rules())
}

func TestBuildEngineShippedDoctrine(t *testing.T) {
	d, engine, err := buildEngine("../doctrines/siege.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Siege", d.Name)

	names := make(map[string]bool)
	for _, r := range engine.Rules() {
		names[r.Name] = true
	}
	assert.True(t, names["break-flat-line"])
	assert.True(t, names["shore-up-under-pressure"])
	assert.True(t, names["fill-openings"], "defense 0.6 compiles the fill rule")
}

func TestBuildEngineMissingDoctrine(t *testing.T) {
	_, _, err := buildEngine("../doctrines/missing.yaml")
	assert.Error(t, err)
}
