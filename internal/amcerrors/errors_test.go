package amcerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruvnet/crdtcheck/internal/amcerrors"
)

func TestNewErrorFormatsWithoutDetails(t *testing.T) {
	err := amcerrors.New(amcerrors.ConfigInvalid, "bad config")
	assert.Equal(t, "CONFIG_INVALID: bad config", err.Error())
}

func TestWrapIncludesUnderlyingErrorText(t *testing.T) {
	err := amcerrors.Wrap(errors.New("eof"), amcerrors.PeerTrafficInvalid, "decode failed")
	assert.Equal(t, "PEER_TRAFFIC_INVALID: decode failed (eof)", err.Error())
}

func TestWithMetadataChains(t *testing.T) {
	err := amcerrors.New(amcerrors.BackendUnavailable, "redis down").WithMetadata("host", "localhost")
	assert.Equal(t, "localhost", err.Metadata["host"])
}

func TestIsMatchesByCode(t *testing.T) {
	err := amcerrors.New(amcerrors.PropertyViolation, "violated")
	assert.True(t, amcerrors.Is(err, amcerrors.PropertyViolation))
	assert.False(t, amcerrors.Is(err, amcerrors.ConfigInvalid))
}

func TestIsFalseForNonCheckError(t *testing.T) {
	assert.False(t, amcerrors.Is(errors.New("plain"), amcerrors.ConfigInvalid))
}

func TestUnreachablePanicsWithProgrammerError(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		ce, ok := r.(*amcerrors.CheckError)
		if !ok {
			t.Fatalf("expected *CheckError, got %T", r)
		}
		assert.Equal(t, amcerrors.ProgrammerError, ce.Code)
	}()
	amcerrors.Unreachable("server %d received an output", 3)
}
