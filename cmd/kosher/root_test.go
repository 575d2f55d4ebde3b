package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"kosher/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand_Defaults(t *testing.T) {
	cmd := newRunCmd()

	feature, err := cmd.Flags().GetString("feature")
	require.NoError(t, err)
	assert.Equal(t, defaultFeaturePath, feature)

	n, err := cmd.Flags().GetInt("benchmark")
	require.NoError(t, err)
	assert.Zero(t, n)

	keepOpen, err := cmd.Flags().GetBool("keep-open")
	require.NoError(t, err)
	assert.True(t, keepOpen)
}

func TestRootCommand_Version(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), version)
}

func TestRunCommand_RejectsNegativeBenchmark(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"run", "--benchmark=-2"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "--benchmark must be positive")
}

func TestRunCommand_MissingFeature(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{
		"run",
		"--serve-fixture=false",
		"--feature", filepath.Join(t.TempDir(), "nope.feature"),
	})

	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, entity.ErrFeatureNotFound)
}
