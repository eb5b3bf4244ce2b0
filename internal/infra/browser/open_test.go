package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantArgs []string
	}{
		{goos: "darwin", wantArgs: []string{"open", "/tmp/m.html"}},
		{goos: "linux", wantArgs: []string{"xdg-open", "/tmp/m.html"}},
		{goos: "windows", wantArgs: []string{"cmd", "/c", "start", "", "/tmp/m.html"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := command(tt.goos, "/tmp/m.html")
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, cmd.Args)
		})
	}
}

func TestCommand_UnsupportedOS(t *testing.T) {
	_, err := command("plan9", "/tmp/m.html")
	assert.Error(t, err)
}
