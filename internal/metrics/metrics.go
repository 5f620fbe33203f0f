package metrics

import (
	"database/sql"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	metricPrefix = "clientmap_"

	ResultAssigned = "assigned"
	ResultExisting = "existing"
	ResultFull     = "full"
	ResultError    = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	registerOnce sync.Once

	slotAssignments *prometheus.CounterVec
	slotReleases    prometheus.Counter
	labelAnchors    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	geocodeRequests *prometheus.CounterVec
)

// Init registers the service metrics. db may be nil, in which case the
// slot occupancy gauge is skipped.
func Init(db *sql.DB, log *zap.Logger) {
	registerOnce.Do(func() {
		slotAssignments = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "slot_assignments_total",
				Help: "Slot assignment attempts by result",
			},
			[]string{"result"},
		)
		slotReleases = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "slot_releases_total",
				Help: "Slots returned to the available pool",
			},
		)
		labelAnchors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "label_anchors_total",
				Help: "Label anchors computed by strategy",
			},
			[]string{"strategy"},
		)
		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_lookups_total",
				Help: "Response cache lookups by result",
			},
			[]string{"result"},
		)
		geocodeRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "geocode_requests_total",
				Help: "Geocoder calls by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			slotAssignments,
			slotReleases,
			labelAnchors,
			cacheLookups,
			geocodeRequests,
		)

		if db != nil {
			registerDBMetrics(db, log)
		}
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func IncSlotAssignment(result string) {
	if result == "" {
		result = ResultAssigned
	}
	if slotAssignments != nil {
		slotAssignments.WithLabelValues(result).Inc()
	}
}

func AddSlotReleases(n int) {
	if n <= 0 {
		return
	}
	if slotReleases != nil {
		slotReleases.Add(float64(n))
	}
}

func IncLabelAnchor(strategy string) {
	if strategy == "" {
		strategy = "unknown"
	}
	if labelAnchors != nil {
		labelAnchors.WithLabelValues(strategy).Inc()
	}
}

func IncCacheLookup(result string) {
	if cacheLookups != nil {
		cacheLookups.WithLabelValues(result).Inc()
	}
}

func IncGeocode(result string) {
	if geocodeRequests != nil {
		geocodeRequests.WithLabelValues(result).Inc()
	}
}
