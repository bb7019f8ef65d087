package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOrNA(t *testing.T) {
	require.Equal(t, "N/A", orNA(""))
	require.Equal(t, "v1", orNA("v1"))
}

func TestLog(t *testing.T) {
	ov := BuildVersion
	t.Cleanup(func() { BuildVersion = ov })
	BuildVersion = "v2"

	core, logs := observer.New(zap.InfoLevel)
	Log(zap.New(core).Sugar(), "server")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, "server", fields["binary"])
	require.Equal(t, "v2", fields["version"])
	require.Equal(t, "N/A", fields["commit"])
}
