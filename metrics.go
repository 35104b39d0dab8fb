package bytebuf

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	failureMissingPayload   = "missing_payload"
	failureCapacityOverflow = "capacity_overflow"
	failureTruncated        = "truncated_payload"
	failureCorrupt          = "corrupt_stream"
	failureIO               = "io"
)

type metrics struct {
	encoded        prometheus.Counter
	decoded        prometheus.Counter
	encodedBytes   prometheus.Counter
	decodedBytes   prometheus.Counter
	encodeFailures *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer, namespace, subsystem string) *metrics {
	if registerer != nil {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"component": "bytebuf"},
			registerer,
		)
	}

	m := metrics{
		encoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_encoded",
			Help:      "Number of buffer records encoded",
		}),
		decoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_decoded",
			Help:      "Number of buffer records decoded",
		}),
		encodedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payload_bytes_encoded",
			Help:      "Number of payload bytes written",
		}),
		decodedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payload_bytes_decoded",
			Help:      "Number of payload bytes read",
		}),
		encodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "encode_failures",
			Help:      "Number of failed encodes by reason",
		}, []string{"reason"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decode_failures",
			Help:      "Number of failed decodes by reason",
		}, []string{"reason"}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.encoded,
			m.decoded,
			m.encodedBytes,
			m.decodedBytes,
			m.encodeFailures,
			m.decodeFailures,
		)
	}

	return &m
}
