package telemetry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/internal/telemetry"
)

func TestNopReporterRecordsWithoutPanicking(t *testing.T) {
	r := telemetry.NewNop()
	r.VisitState(3)
	r.Dedup()
	r.SetFrontier(5)
	r.RecordViolation("some-property")
	r.ObserveStep(10 * time.Millisecond)
	r.Sync()
}

func TestNewBuildsUsableReporter(t *testing.T) {
	r, err := telemetry.New("debug")
	require.NoError(t, err)
	require.NotNil(t, r.Logger)
	r.VisitState(1)
	r.Sync()
}

func TestObservedReporterCapturesLogEntriesDeterministically(t *testing.T) {
	r, logs := telemetry.NewObserved()
	r.Logger.Warn("sticky error bit set")
	r.Logger.Info("run started")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "sticky error bit set", entries[0].Message)
	assert.Equal(t, "run started", entries[1].Message)
}
