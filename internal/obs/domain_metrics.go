package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesCommittedTotal counts committed sales by payment method.
	SalesCommittedTotal *prometheus.CounterVec
	// SaleCommitFailures counts failed commit attempts.
	SaleCommitFailures prometheus.Counter
	// SaleTotalSatang records the distribution of committed sale totals.
	SaleTotalSatang prometheus.Histogram
	// DiscountAppliedTotal counts applied discounts by stack slot.
	DiscountAppliedTotal *prometheus.CounterVec
	// PointsRedeemedTotal accumulates loyalty points redeemed at the counter.
	PointsRedeemedTotal prometheus.Counter
	// BarcodeScanTotal counts barcode scans by outcome.
	BarcodeScanTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the POS Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesCommittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_committed_total",
			Help:      "Count of committed sales by payment method.",
		}, []string{"method"})
		SaleCommitFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_commit_failures_total",
			Help:      "Count of sale commits that failed and were left retryable.",
		})
		SaleTotalSatang = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_total_satang",
			Help:      "Distribution of committed sale totals in satang.",
			Buckets:   []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000},
		})
		DiscountAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_applied_total",
			Help:      "Count of non-zero discount applications by stack slot.",
		}, []string{"slot"})
		PointsRedeemedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_redeemed_total",
			Help:      "Total loyalty points redeemed across committed sales.",
		})
		BarcodeScanTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barcode_scan_total",
			Help:      "Count of barcode scans by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, SalesCommittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesCommittedTotal = v
			}
		})
		mustRegisterCollector(reg, SaleCommitFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SaleCommitFailures = v
			}
		})
		mustRegisterCollector(reg, SaleTotalSatang, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleTotalSatang = v
			}
		})
		mustRegisterCollector(reg, DiscountAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, PointsRedeemedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PointsRedeemedTotal = v
			}
		})
		mustRegisterCollector(reg, BarcodeScanTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BarcodeScanTotal = v
			}
		})
	})
}

// ObserveSaleCommitted records one committed sale on the domain collectors.
func ObserveSaleCommitted(method string, totalSatang int64, redeemedPoints int64) {
	if SalesCommittedTotal == nil {
		return
	}
	SalesCommittedTotal.WithLabelValues(method).Inc()
	SaleTotalSatang.Observe(float64(totalSatang))
	if redeemedPoints > 0 {
		PointsRedeemedTotal.Add(float64(redeemedPoints))
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("obs: register collector: %w", err))
	}
}
