// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TenantResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolve_total",
			Help: "Host resolutions by outcome (tenant, platform, error).",
		}, []string{"outcome"})

	TenantGateRejectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_gate_reject_total",
			Help: "Requests rejected by the lifecycle gate, by kind.",
		}, []string{"kind"})

	ActiveTenantPools = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_pools_active",
			Help: "Number of per-tenant connection pools currently open.",
		})

	TenantPoolOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_pool_open_total",
			Help: "Cumulative number of per-tenant pools opened.",
		})

	TenantPoolOpenErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_pool_open_errors_total",
			Help: "Cumulative number of per-tenant pool or connection failures.",
		})

	TenantPoolEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_pool_evict_total",
			Help: "Cumulative number of per-tenant pools evicted or invalidated.",
		})

	TokenAuthTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_auth_total",
			Help: "Access token authentications by outcome.",
		}, []string{"outcome"})

	HeartbeatRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "heartbeat_recorded_total",
			Help: "Cumulative number of heartbeats persisted.",
		})

	HeartbeatRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartbeat_rejected_total",
			Help: "Heartbeat submissions rejected, by reason.",
		}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		TenantResolveTotal,
		TenantGateRejectTotal,
		ActiveTenantPools,
		TenantPoolOpenTotal,
		TenantPoolOpenErrorsTotal,
		TenantPoolEvictTotal,
		TokenAuthTotal,
		HeartbeatRecordedTotal,
		HeartbeatRejectedTotal,
	)
}
