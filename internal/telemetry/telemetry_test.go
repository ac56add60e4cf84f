package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSinkWritesOneLinePerTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	sink, err := NewFileSink(path, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Write(Snapshot{Tick: 1, Robots: []RobotSnapshot{{ID: "r1", X: 1, Y: 2, Status: "MOVING"}}}))
	require.NoError(t, sink.Write(Snapshot{Tick: 2, Robots: nil}))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first Snapshot
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, 1, first.Tick)
	require.Equal(t, "r1", first.Robots[0].ID)
}

func TestNopSinkNeverErrors(t *testing.T) {
	var s NopSink
	require.NoError(t, s.Write(Snapshot{Tick: 5}))
	require.NoError(t, s.Close())
}
