package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	DistributionSuccessTotal *prometheus.CounterVec
	DistributionFailedTotal  *prometheus.CounterVec
	DistributionAmountTotal  *prometheus.CounterVec
	RecipientsPerSend        prometheus.Histogram
	ApprovalTotal            *prometheus.CounterVec
	ImportRejectedTotal      prometheus.Counter
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		DistributionSuccessTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "multisender_distribution_success_total",
			Help: "Total number of successful distributions",
		}, []string{"asset_kind", "mode"}),
		DistributionFailedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "multisender_distribution_failed_total",
			Help: "Total number of failed distributions",
		}, []string{"asset_kind", "stage"}),
		DistributionAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "multisender_distribution_amount_total",
			Help: "The total distributed amount in display units",
		}, []string{"asset"}),
		RecipientsPerSend: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "multisender_recipients_per_send",
			Help:    "Recipient count per completed distribution",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		ApprovalTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "multisender_approval_total",
			Help: "Total number of ERC20 approval attempts",
		}, []string{"result"}),
		ImportRejectedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "multisender_import_rejected_total",
			Help: "Total number of rejected CSV imports",
		}),
	}
}
