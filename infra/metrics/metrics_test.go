package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct{}

func (fakeSource) Len() int             { return 3 }
func (fakeSource) Pending() int64       { return 1 }
func (fakeSource) Released() uint64     { return 9 }
func (fakeSource) GracePeriods() uint64 { return 4 }

func TestMetricsCountersAndScrape(t *testing.T) {
	m := New()
	m.Observe(fakeSource{})

	m.Inserts.Add(2)
	m.Rejected.WithLabelValues("invalid").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Inserts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejected.WithLabelValues("invalid")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		"kennel_list_length 3",
		"kennel_reclaim_pending 1",
		"kennel_reclaimed_total 9",
		"kennel_grace_periods_total 4",
		"kennel_inserts_total 2",
	} {
		assert.True(t, strings.Contains(body, want), "missing %q", want)
	}
}
