package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleCommitTotal counts sale commit outcomes (settled, rejected).
	SaleCommitTotal *prometheus.CounterVec
	// QuotationTotal counts quotation dispatch outcomes.
	QuotationTotal *prometheus.CounterVec
	// DocumentRenderTotal counts rendered documents by kind and format.
	DocumentRenderTotal *prometheus.CounterVec
	// CatalogFetchTotal counts catalog backend fetch outcomes.
	CatalogFetchTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleCommitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_commit_total",
			Help:      "Count of sale commit outcomes.",
		}, []string{"result"})
		QuotationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotation_total",
			Help:      "Count of quotation dispatch outcomes.",
		}, []string{"result"})
		DocumentRenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_render_total",
			Help:      "Count of rendered documents by kind and output format.",
		}, []string{"kind", "format"})
		CatalogFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_total",
			Help:      "Count of catalog backend fetch outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, SaleCommitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleCommitTotal = v
			}
		})
		mustRegisterCollector(reg, QuotationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotationTotal = v
			}
		})
		mustRegisterCollector(reg, DocumentRenderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentRenderTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogFetchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogFetchTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
