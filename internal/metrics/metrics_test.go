package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint", 200)
		IncValidationFailure("email")
	})

	before := testutil.ToFloat64(bookingsCreated)
	IncBookingCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingsCreated))

	before = testutil.ToFloat64(bookingConflicts)
	IncBookingConflict()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingConflicts))

	before = testutil.ToFloat64(bookingsDeleted)
	IncBookingDeleted()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingsDeleted))
}
