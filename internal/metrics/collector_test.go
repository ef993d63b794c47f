package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordsEngineActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("skein_test", reg)

	c.RunFinished("completed", 120*time.Millisecond)
	c.RunFinished("completed", 80*time.Millisecond)
	c.RunFinished("error", 10*time.Millisecond)
	c.FrameProcessed()
	c.FrameProcessed()
	c.LoopIteration()
	c.ObserveHandler("set", time.Millisecond, nil)
	c.ObserveHandler("http", time.Millisecond, errors.New("boom"))

	assert.Equal(t, float64(2), testutil.ToFloat64(c.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.framesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.loopIterationsTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.handlerErrorsTotal.WithLabelValues("set")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.handlerErrorsTotal.WithLabelValues("http")))
}

func TestCollector_NilIsNoOp(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RunFinished("completed", time.Second)
		c.FrameProcessed()
		c.LoopIteration()
		c.ObserveHandler("set", time.Millisecond, errors.New("boom"))
	})
}

func TestCollector_MetricNamesCarryNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("myns", reg)
	c.FrameProcessed()

	families, err := reg.Gather()
	assert.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "myns_frames_total" {
			found = true
		}
	}
	assert.True(t, found)
}
