package auctionhouse

import (
	"github.com/nftbiennial/auctionhouse/schema"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricNameSpace = "auctionhouse"
)

var (
	auctionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "auctions_created_total",
			Help:      "auctions accepted into the registry",
		},
	)
	bidsPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "bids_placed_total",
			Help:      "accepted bids",
		},
	)
	auctionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "auctions_closed_total",
			Help:      "terminal auctions by outcome",
		},
		[]string{"outcome"},
	)
	payoutVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "payout_volume_total",
			Help:      "native currency paid out at settlement",
		},
	)
	activeAuctions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "active_auctions",
			Help:      "auctions currently in the registry",
		},
	)
)

func init() {
	prometheus.MustRegister(
		auctionsCreated,
		bidsPlaced,
		auctionsClosed,
		payoutVolume,
		activeAuctions,
	)
}

func metricAuctionClosed(outcome string, payouts []schema.Payout) {
	auctionsClosed.WithLabelValues(outcome).Inc()
	for _, p := range payouts {
		payoutVolume.Add(float64(p.Amount))
	}
}
