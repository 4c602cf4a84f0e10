package oltpbench

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hhkbp2/testify/require"
	"github.com/spf13/pflag"
)

func TestParseArgs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "workload.yaml")
	content := `
operationcount: 100
browseproportion: 0.5
basicdb:
  orders: 7
`
	require.Nil(t, os.WriteFile(file, []byte(content), 0644))

	args, err := ParseArgs([]string{
		"run", "basic",
		"-P", file,
		"-p", "operationcount=200",
		"-p", "seed=3",
		"--property", "exportfile=out-%Y.json",
		"-n", "300",
		"-s",
		"--log-level", "debug",
	})
	require.Nil(t, err)
	require.Equal(t, "run", args.Command)
	require.Equal(t, "basic", args.Database)
	require.True(t, args.Status)
	require.Equal(t, LevelDebug, args.LogLevel)
	require.Equal(t, "basic", args.Get(PropertyDB))
	require.Equal(t, "300", args.Get(PropertyOperationCount))
	require.Equal(t, "0.5", args.Get(PropertyBrowseProportion))
	require.Equal(t, "7", args.Get(ConfigBasicDBOrders))
	require.Equal(t, "3", args.Get(PropertySeed))
	require.Equal(t, "out-%Y.json", args.Get(PropertyExportFile))

	// -p overrides the file when -n is absent
	args, err = ParseArgs([]string{"load", "basic", "-P", file, "-p", "operationcount=200"})
	require.Nil(t, err)
	require.Equal(t, "200", args.Get(PropertyOperationCount))
	require.True(t, !args.Status)
	require.Equal(t, LevelInfo, args.LogLevel)
}

func TestParseArgsErrors(t *testing.T) {
	_, err := ParseArgs([]string{"-h"})
	require.Equal(t, pflag.ErrHelp, err)

	for _, argv := range [][]string{
		{},
		{"run"},
		{"run", "basic", "extra"},
		{"bench", "basic"},
		{"run", "cassandra"},
		{"run", "basic", "-p", "operationcount"},
		{"run", "basic", "-p", "=3"},
		{"run", "basic", "-n", "-1"},
		{"run", "basic", "-n", "many"},
		{"run", "basic", "--log-level", "loud"},
		{"run", "basic", "-P", filepath.Join(t.TempDir(), "missing.yaml")},
		{"run", "basic", "--unknown"},
	} {
		_, err = ParseArgs(argv)
		require.NotNil(t, err)
	}
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	Usage(&buf)
	require.Contains(t, buf.String(), "Commands:\n  load")
	require.Contains(t, buf.String(), "  basic\n")
	require.Contains(t, buf.String(), "-p operationcount=N")
}
