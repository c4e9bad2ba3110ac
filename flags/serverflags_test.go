package flags

import (
	"testing"

	"gotest.tools/assert"
)

func TestParseServerArgs(t *testing.T) {
	f, err := ParseServerArgs([]string{"gtgated", "-l", "127.0.0.1:9000", "-v"})
	assert.NilError(t, err)
	assert.Equal(t, f.ListenAddress, "127.0.0.1:9000")
	assert.Equal(t, f.Verbose, true)
	assert.Equal(t, f.ConfigPath, "")
}

func TestParseServerArgsExcess(t *testing.T) {
	_, err := ParseServerArgs([]string{"gtgated", "stray"})
	assert.Assert(t, err == ErrExcessArgs)
}

func TestLoadServerConfigFromFlagsOverrides(t *testing.T) {
	f := &ServerFlags{ListenAddress: "127.0.0.1:9000", Verbose: true}
	sc, err := LoadServerConfigFromFlags(f)
	assert.NilError(t, err)
	assert.Equal(t, sc.ListenAddress, "127.0.0.1:9000")
	assert.Equal(t, sc.LogLevel, "debug")
}
