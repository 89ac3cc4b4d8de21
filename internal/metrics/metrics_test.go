package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues("GET", "200"))
	ObserveUpstream("GET", 200, 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamRequests.WithLabelValues("GET", "200")))

	beforeErr := testutil.ToFloat64(UpstreamRequests.WithLabelValues("POST", "error"))
	ObserveUpstream("POST", 0, time.Millisecond)
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(UpstreamRequests.WithLabelValues("POST", "error")))
}

func TestObserveImportRow(t *testing.T) {
	ok := testutil.ToFloat64(ImportRows.WithLabelValues("success"))
	fail := testutil.ToFloat64(ImportRows.WithLabelValues("fail"))

	ObserveImportRow(true)
	ObserveImportRow(false)
	ObserveImportRow(false)

	assert.Equal(t, ok+1, testutil.ToFloat64(ImportRows.WithLabelValues("success")))
	assert.Equal(t, fail+2, testutil.ToFloat64(ImportRows.WithLabelValues("fail")))
}
