// Package metrics provides Prometheus metrics for the remote file server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SFTP channel metrics
	channelsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotefs_sftp_channels_opened_total",
			Help: "Total number of SFTP channels opened",
		},
		[]string{"purpose"},
	)

	channelsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remotefs_sftp_channels_open",
			Help: "Number of SFTP channels currently open",
		},
	)

	channelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotefs_sftp_calls_total",
			Help: "Total number of SFTP primitives issued",
		},
		[]string{"op", "result"},
	)

	// Transfer metrics
	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remotefs_bytes_downloaded_total",
			Help: "Total bytes streamed from remote files",
		},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remotefs_bytes_uploaded_total",
			Help: "Total bytes streamed to remote files",
		},
	)

	connectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remotefs_connections_active",
			Help: "Number of open remote connections",
		},
	)
)

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordChannelOpened counts a channel opened for purpose (shared, read, write).
func RecordChannelOpened(purpose string) {
	channelsOpenedTotal.WithLabelValues(purpose).Inc()
	channelsOpen.Inc()
}

// RecordChannelClosed balances RecordChannelOpened.
func RecordChannelClosed() {
	channelsOpen.Dec()
}

// RecordChannelCall counts one primitive and its outcome: ok, remote or transport.
func RecordChannelCall(op, result string) {
	channelCallsTotal.WithLabelValues(op, result).Inc()
}

func RecordDownload(bytes int64) {
	bytesDownloaded.Add(float64(bytes))
}

func RecordUpload(bytes int64) {
	bytesUploaded.Add(float64(bytes))
}

func SetConnectionsActive(count int) {
	connectionsActive.Set(float64(count))
}
