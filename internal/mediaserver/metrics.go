package mediaserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localcast_media_requests_total",
		Help: "Stream requests served, by HTTP status code.",
	}, []string{"code"})

	bytesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localcast_media_bytes_sent_total",
		Help: "Media payload bytes written to renderers.",
	})

	rangeRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localcast_media_range_requests_total",
		Help: "Stream requests that carried a Range header.",
	})
)
