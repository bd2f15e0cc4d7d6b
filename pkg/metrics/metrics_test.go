package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserverHooks(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.WindowExported()
	m.WindowExported()
	m.WindowSkipped()
	m.RowsWritten("Count", 3)
	m.RowsWritten("Count", 2)
	m.BreakerStateChanged("reddit", 1)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"exported", m.WindowsTotal.WithLabelValues("exported"), 2},
		{"skipped", m.WindowsTotal.WithLabelValues("skipped"), 1},
		{"rows", m.RankRowsWrittenTotal.WithLabelValues("Count"), 5},
		{"breaker", m.CircuitBreakerState.WithLabelValues("reddit"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewWithRegistryRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWithRegistry(reg)
	defer func() {
		if recover() == nil {
			t.Error("second registration on the same registry did not panic")
		}
	}()
	NewWithRegistry(reg)
}
