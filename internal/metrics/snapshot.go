package metrics

import (
	"encoding/json"
	"fmt"
	"strings"

	dto "github.com/prometheus/client_model/go"
)

// Snapshot is a JSON-friendly summary of the counters in a Collector.
type Snapshot struct {
	Submissions        map[string]map[string]uint64 `json:"submissions"`
	EstimationFailures map[string]uint64            `json:"estimation_failures"`
	LogQueries         map[string]uint64            `json:"log_queries"`
	Outstanding        int                          `json:"outstanding_requests"`
	Reconnects         uint64                       `json:"watcher_reconnects"`
	UptimeSeconds      float64                      `json:"uptime_seconds"`
}

// Snapshot gathers the registry into a Snapshot.
func (c *Collector) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Submissions:        make(map[string]map[string]uint64),
		EstimationFailures: make(map[string]uint64),
		LogQueries:         make(map[string]uint64),
	}
	if c == nil {
		return s, nil
	}

	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), namespace+"_")
		for _, m := range mf.GetMetric() {
			labels := labelMap(m)
			switch name {
			case "submissions_total":
				method := labels["method"]
				if s.Submissions[method] == nil {
					s.Submissions[method] = make(map[string]uint64)
				}
				s.Submissions[method][labels["outcome"]] = uint64(m.GetCounter().GetValue())
			case "estimation_failures_total":
				s.EstimationFailures[labels["method"]] = uint64(m.GetCounter().GetValue())
			case "log_queries_total":
				s.LogQueries[labels["event"]] = uint64(m.GetCounter().GetValue())
			case "outstanding_requests":
				s.Outstanding = int(m.GetGauge().GetValue())
			case "watcher_reconnects_total":
				s.Reconnects = uint64(m.GetCounter().GetValue())
			case "uptime_seconds":
				s.UptimeSeconds = m.GetGauge().GetValue()
			}
		}
	}
	return s, nil
}

// JSON returns the snapshot encoded as indented JSON.
func (s *Snapshot) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func labelMap(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}
