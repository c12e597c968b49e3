// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "trims values",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "notify-webhook-token", "  tok_abc\n")
				return dir
			},
			want: Set{"notify-webhook-token": "tok_abc"},
		},
		{
			name: "missing directory is empty",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent")
			},
			want: Set{},
		},
		{
			name: "skips hidden empty and directories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden", "secret")
				writeFile(t, dir, "blank", "   \n")
				writeFile(t, dir, "aws-profile", "harvest")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				return dir
			},
			want: Set{"aws-profile": "harvest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file", "x")
	_, err := Load(filepath.Join(dir, "file"), nil)
	assert.Error(t, err)
}

func TestSet_Get(t *testing.T) {
	t.Setenv("PAPER_HARVESTER_NOTIFY_WEBHOOK_TOKEN", " from-env ")
	assert.Equal(t, "PAPER_HARVESTER_NOTIFY_WEBHOOK_TOKEN", EnvName("notify-webhook-token"))

	assert.Equal(t, "from-env", Set{}.Get("notify-webhook-token"))
	assert.Equal(t, "from-file", Set{"notify-webhook-token": "from-file"}.Get("notify-webhook-token"))
	assert.Empty(t, Set{}.Get("unknown-key"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
