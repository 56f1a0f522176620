package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("MARKTEND_TEST_DIR", "/tmp/marktend")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain", in: "/var/lib/marktend.db", want: "/var/lib/marktend.db"},
		{name: "tilde", in: "~/data/marktend.db", want: filepath.Join(home, "data", "marktend.db")},
		{name: "bare tilde", in: "~", want: home},
		{name: "env var", in: "$MARKTEND_TEST_DIR/marktend.db", want: "/tmp/marktend/marktend.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDefaultPathsAreAbsolute(t *testing.T) {
	assert.True(t, filepath.IsAbs(DefaultDatabasePath()))
	assert.True(t, filepath.IsAbs(DefaultConfigDir()))
	assert.True(t, filepath.IsAbs(DefaultHistoryExportPath()))
}
