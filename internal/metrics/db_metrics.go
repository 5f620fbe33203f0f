package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func registerDBMetrics(db *sql.DB, log *zap.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "slots_occupied",
			Help: "Occupied location slots",
		},
		func() float64 {
			return queryCount(db, log, "SELECT COUNT(*) FROM clientmap.location_slots WHERE status = 'occupied'")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "clients",
			Help: "Registered clients",
		},
		func() float64 {
			return queryCount(db, log, "SELECT COUNT(*) FROM clientmap.clients")
		},
	))
}

func queryCount(db *sql.DB, log *zap.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if log != nil {
			log.Warn("metrics query failed", zap.Error(err))
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
