// Package listprom exports the state of a list.List as prometheus metrics.
package listprom

import (
	"strings"

	"github.com/feynman-go/lockchain/list"
	"github.com/prometheus/client_golang/prometheus"
)

type ListProm struct {
	list             *list.List
	lenDesc          *prometheus.Desc
	heldDesc         *prometheus.Desc
	acquisitionsDesc *prometheus.Desc
	peakDesc         *prometheus.Desc
	poisonedDesc     *prometheus.Desc
}

// New describes l under the metric prefix name. Dashes in name become underscores.
func New(l *list.List, name string) *ListProm {
	name = strings.Replace(name, "-", "_", -1)
	labels := prometheus.Labels{"policy": l.Policy().String()}
	return &ListProm{
		list:             l,
		lenDesc:          prometheus.NewDesc(name+"_list_len", "Live nodes in the list.", nil, labels),
		heldDesc:         prometheus.NewDesc(name+"_list_locks_held", "Locks currently held on the list.", nil, labels),
		acquisitionsDesc: prometheus.NewDesc(name+"_list_lock_acquisitions_total", "Lock acquisitions on the list.", nil, labels),
		peakDesc:         prometheus.NewDesc(name+"_list_locks_held_peak", "Highest number of locks held at once.", nil, labels),
		poisonedDesc:     prometheus.NewDesc(name+"_list_poisoned", "1 when the list has been poisoned.", nil, labels),
	}
}

func (prom *ListProm) Collect(ch chan<- prometheus.Metric) {
	stats := prom.list.Stats()
	var poisoned float64
	if stats.Poisoned {
		poisoned = 1
	}
	ch <- prometheus.MustNewConstMetric(prom.lenDesc, prometheus.GaugeValue, float64(stats.Len))
	ch <- prometheus.MustNewConstMetric(prom.heldDesc, prometheus.GaugeValue, float64(stats.HeldLocks))
	ch <- prometheus.MustNewConstMetric(prom.acquisitionsDesc, prometheus.CounterValue, float64(stats.Acquisitions))
	ch <- prometheus.MustNewConstMetric(prom.peakDesc, prometheus.GaugeValue, float64(stats.PeakHeld))
	ch <- prometheus.MustNewConstMetric(prom.poisonedDesc, prometheus.GaugeValue, poisoned)
}

func (prom *ListProm) Describe(ch chan<- *prometheus.Desc) {
	ch <- prom.lenDesc
	ch <- prom.heldDesc
	ch <- prom.acquisitionsDesc
	ch <- prom.peakDesc
	ch <- prom.poisonedDesc
}

// MustRegister registers into reg, or into the default registry when reg is nil.
func (prom *ListProm) MustRegister(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(prom)
}
