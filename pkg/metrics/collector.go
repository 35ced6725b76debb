// Package metrics exposes a Store's lease accounting as Prometheus
// metrics, walking the tree at scrape time rather than maintaining
// pre-registered gauges that would need updating on every mutation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mudinlove/dibbler/pkg/addrmgr"
)

// Collector implements prometheus.Collector over an *addrmgr.Store.
type Collector struct {
	store *addrmgr.Store

	clients          *prometheus.Desc
	leasedAddresses  *prometheus.Desc
	leasedPrefixes   *prometheus.Desc
	nextT1Seconds    *prometheus.Desc
	nextT2Seconds    *prometheus.Desc
	nextPrefSeconds  *prometheus.Desc
	nextValidSeconds *prometheus.Desc
}

// NewCollector builds a Collector reading from store. Register it with a
// prometheus.Registry to expose it on a scrape endpoint.
func NewCollector(store *addrmgr.Store) *Collector {
	return &Collector{
		store: store,

		clients: prometheus.NewDesc(
			"dibbler_addrmgr_clients",
			"Number of clients currently tracked by the address manager.",
			nil, nil,
		),
		leasedAddresses: prometheus.NewDesc(
			"dibbler_addrmgr_leased_addresses",
			"Number of addresses currently leased across all IA_NA.",
			nil, nil,
		),
		leasedPrefixes: prometheus.NewDesc(
			"dibbler_addrmgr_leased_prefixes",
			"Number of prefixes currently delegated across all IA_PD.",
			nil, nil,
		),
		nextT1Seconds: prometheus.NewDesc(
			"dibbler_addrmgr_next_t1_seconds",
			"Smallest T1 renew interval across all IAs, in seconds.",
			nil, nil,
		),
		nextT2Seconds: prometheus.NewDesc(
			"dibbler_addrmgr_next_t2_seconds",
			"Smallest T2 rebind interval across all IAs, in seconds.",
			nil, nil,
		),
		nextPrefSeconds: prometheus.NewDesc(
			"dibbler_addrmgr_next_preferred_seconds",
			"Smallest preferred lifetime across all leases, in seconds.",
			nil, nil,
		),
		nextValidSeconds: prometheus.NewDesc(
			"dibbler_addrmgr_next_valid_seconds",
			"Smallest valid lifetime across all leases, in seconds.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.clients
	ch <- c.leasedAddresses
	ch <- c.leasedPrefixes
	ch <- c.nextT1Seconds
	ch <- c.nextT2Seconds
	ch <- c.nextPrefSeconds
	ch <- c.nextValidSeconds
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	clients := c.store.Clients()

	var addrs, prefixes int
	for _, cl := range clients {
		for _, ia := range cl.Iter(addrmgr.IANA) {
			addrs += ia.CountAddrs()
		}
		for _, ia := range cl.Iter(addrmgr.IAPD) {
			prefixes += ia.CountPrefixes()
		}
	}

	ch <- prometheus.MustNewConstMetric(c.clients, prometheus.GaugeValue, float64(len(clients)))
	ch <- prometheus.MustNewConstMetric(c.leasedAddresses, prometheus.GaugeValue, float64(addrs))
	ch <- prometheus.MustNewConstMetric(c.leasedPrefixes, prometheus.GaugeValue, float64(prefixes))

	ch <- prometheus.MustNewConstMetric(c.nextT1Seconds, prometheus.GaugeValue, float64(c.store.MinT1()))
	ch <- prometheus.MustNewConstMetric(c.nextT2Seconds, prometheus.GaugeValue, float64(c.store.MinT2()))
	ch <- prometheus.MustNewConstMetric(c.nextPrefSeconds, prometheus.GaugeValue, float64(c.store.MinPreferred()))
	ch <- prometheus.MustNewConstMetric(c.nextValidSeconds, prometheus.GaugeValue, float64(c.store.MinValid()))
}
