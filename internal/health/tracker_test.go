package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewlyRegisteredComponentIsHealthy(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.Register("metastore")
	assert.Equal(t, StateHealthy, tr.State("metastore"))
}

func TestRecordErrorEscalatesToDegradedThenUnavailable(t *testing.T) {
	tr := NewTracker(TrackerConfig{DegradedThreshold: 2, UnavailableThreshold: 4})
	tr.Register("objectstore")

	tr.RecordError("objectstore", errors.New("disk error"))
	assert.Equal(t, StateHealthy, tr.State("objectstore"))

	tr.RecordError("objectstore", errors.New("disk error"))
	assert.Equal(t, StateDegraded, tr.State("objectstore"))

	tr.RecordError("objectstore", errors.New("disk error"))
	tr.RecordError("objectstore", errors.New("disk error"))
	assert.Equal(t, StateUnavailable, tr.State("objectstore"))
}

func TestRecordSuccessResetsToHealthy(t *testing.T) {
	tr := NewTracker(TrackerConfig{DegradedThreshold: 1, UnavailableThreshold: 2})
	tr.Register("metastore")
	tr.RecordError("metastore", errors.New("boom"))
	assert.Equal(t, StateDegraded, tr.State("metastore"))

	tr.RecordSuccess("metastore")
	assert.Equal(t, StateHealthy, tr.State("metastore"))
}

func TestOverallReflectsWorstComponent(t *testing.T) {
	tr := NewTracker(TrackerConfig{DegradedThreshold: 1, UnavailableThreshold: 5})
	tr.Register("objectstore")
	tr.Register("metastore")

	tr.RecordError("metastore", errors.New("boom"))
	assert.Equal(t, StateDegraded, tr.Overall())
}
