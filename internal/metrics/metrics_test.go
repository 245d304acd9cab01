package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(Jobs.WithLabelValues("email:welcome", "success"))
	Jobs.WithLabelValues("email:welcome", "success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Jobs.WithLabelValues("email:welcome", "success")))
}
