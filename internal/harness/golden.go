package harness

import (
	"encoding/json"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TraceSnapshot is the serialized form of a scenario run.
type TraceSnapshot struct {
	Scenario string  `json:"scenario"`
	Trace    []Event `json:"trace"`
}

// AssertGolden compares the accumulated trace against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func (r *Runner) AssertGolden(name string) {
	r.t.Helper()

	snapshot := TraceSnapshot{Scenario: name, Trace: r.trace}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	require.NoError(r.t, err)

	g := goldie.New(r.t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(r.t, name, data)
}
