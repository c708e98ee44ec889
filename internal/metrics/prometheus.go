package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// FormatPrometheus renders a snapshot in Prometheus text format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func FormatPrometheus(snap Snapshot) string {
	var sb strings.Builder

	sb.WriteString("# HELP veriport_uptime_seconds Time since the portal started\n")
	sb.WriteString("# TYPE veriport_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("veriport_uptime_seconds %d\n", snap.Uptime))
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_requests_total Total HTTP requests by endpoint\n")
	sb.WriteString("# TYPE veriport_requests_total counter\n")
	for _, endpoint := range sortedKeys(snap.TotalRequests) {
		sb.WriteString(fmt.Sprintf("veriport_requests_total{endpoint=\"%s\"} %d\n", endpoint, snap.TotalRequests[endpoint]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_request_errors_total Total HTTP request errors by endpoint\n")
	sb.WriteString("# TYPE veriport_request_errors_total counter\n")
	for _, endpoint := range sortedKeys(snap.RequestErrors) {
		sb.WriteString(fmt.Sprintf("veriport_request_errors_total{endpoint=\"%s\"} %d\n", endpoint, snap.RequestErrors[endpoint]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_requests_in_progress Current requests being processed\n")
	sb.WriteString("# TYPE veriport_requests_in_progress gauge\n")
	for _, endpoint := range sortedKeys(snap.RequestsInProgress) {
		if count := snap.RequestsInProgress[endpoint]; count > 0 {
			sb.WriteString(fmt.Sprintf("veriport_requests_in_progress{endpoint=\"%s\"} %d\n", endpoint, count))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_request_duration_ms_total Total request duration in milliseconds\n")
	sb.WriteString("# TYPE veriport_request_duration_ms_total counter\n")
	for _, endpoint := range sortedKeys(snap.TotalRequestsDur) {
		sb.WriteString(fmt.Sprintf("veriport_request_duration_ms_total{endpoint=\"%s\"} %d\n", endpoint, snap.TotalRequestsDur[endpoint]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_lookups_total Lookup attempts by capability\n")
	sb.WriteString("# TYPE veriport_lookups_total counter\n")
	for _, key := range sortedKeys(snap.LookupsByCapability) {
		sb.WriteString(fmt.Sprintf("veriport_lookups_total{capability=\"%s\"} %d\n", key, snap.LookupsByCapability[key]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_lookups_by_status_total Lookup attempts by outcome\n")
	sb.WriteString("# TYPE veriport_lookups_by_status_total counter\n")
	for _, status := range sortedKeys(snap.LookupsByStatus) {
		sb.WriteString(fmt.Sprintf("veriport_lookups_by_status_total{status=\"%s\"} %d\n", status, snap.LookupsByStatus[status]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_credits_charged_total Credits charged for successful lookups\n")
	sb.WriteString("# TYPE veriport_credits_charged_total counter\n")
	sb.WriteString(fmt.Sprintf("veriport_credits_charged_total %d\n", snap.CreditsCharged))
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_rate_limit_hits_total Total throttled lookups\n")
	sb.WriteString("# TYPE veriport_rate_limit_hits_total counter\n")
	sb.WriteString(fmt.Sprintf("veriport_rate_limit_hits_total %d\n", snap.RateLimitHits))
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_rate_limit_by_officer_total Throttled lookups by officer\n")
	sb.WriteString("# TYPE veriport_rate_limit_by_officer_total counter\n")
	for _, officer := range sortedKeys(snap.RateLimitByOfficer) {
		sb.WriteString(fmt.Sprintf("veriport_rate_limit_by_officer_total{officer=\"%s\"} %d\n", maskOfficer(officer), snap.RateLimitByOfficer[officer]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_vendor_requests_total Total requests to vendor adapters\n")
	sb.WriteString("# TYPE veriport_vendor_requests_total counter\n")
	for _, adapter := range sortedKeys(snap.VendorRequests) {
		sb.WriteString(fmt.Sprintf("veriport_vendor_requests_total{adapter=\"%s\"} %d\n", adapter, snap.VendorRequests[adapter]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_vendor_errors_total Total vendor adapter errors\n")
	sb.WriteString("# TYPE veriport_vendor_errors_total counter\n")
	for _, adapter := range sortedKeys(snap.VendorErrors) {
		sb.WriteString(fmt.Sprintf("veriport_vendor_errors_total{adapter=\"%s\"} %d\n", adapter, snap.VendorErrors[adapter]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP veriport_vendor_latency_ms_total Total vendor latency in milliseconds\n")
	sb.WriteString("# TYPE veriport_vendor_latency_ms_total counter\n")
	for _, adapter := range sortedKeys(snap.VendorLatency) {
		sb.WriteString(fmt.Sprintf("veriport_vendor_latency_ms_total{adapter=\"%s\"} %d\n", adapter, snap.VendorLatency[adapter]))
	}
	sb.WriteString("\n")

	return sb.String()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func maskOfficer(officer string) string {
	if len(officer) <= 2 {
		return "officer_" + officer
	}
	return "officer_***" + officer[len(officer)-2:]
}
