package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestChannelGauge(t *testing.T) {
	before := testutil.ToFloat64(channelsOpen)
	opened := testutil.ToFloat64(channelsOpenedTotal.WithLabelValues("read"))

	RecordChannelOpened("read")
	assert.Equal(t, before+1, testutil.ToFloat64(channelsOpen))
	assert.Equal(t, opened+1, testutil.ToFloat64(channelsOpenedTotal.WithLabelValues("read")))

	RecordChannelClosed()
	assert.Equal(t, before, testutil.ToFloat64(channelsOpen))
}

func TestTransfers(t *testing.T) {
	down := testutil.ToFloat64(bytesDownloaded)
	up := testutil.ToFloat64(bytesUploaded)

	RecordDownload(10)
	RecordUpload(3)

	assert.Equal(t, down+10, testutil.ToFloat64(bytesDownloaded))
	assert.Equal(t, up+3, testutil.ToFloat64(bytesUploaded))
}

func TestConnectionsActive(t *testing.T) {
	SetConnectionsActive(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(connectionsActive))
}
