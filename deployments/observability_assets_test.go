package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "grafana", "finchat_slo_dashboard.json")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}

	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
	for _, raw := range panels {
		panel, _ := raw.(map[string]any)
		targets, _ := panel["targets"].([]any)
		if len(targets) == 0 {
			t.Fatalf("panel %v has no targets", panel["title"])
		}
		target, _ := targets[0].(map[string]any)
		expr, _ := target["expr"].(string)
		if !strings.HasPrefix(expr, "finchat:") {
			t.Fatalf("panel %v should chart a recorded series, got %q", panel["title"], expr)
		}
	}
}

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "finchat_rules.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rules file: %v", err)
	}
	text := string(content)

	requiredAlerts := []string{
		"FinChatAskLatencyP95High",
		"FinChatPipelineErrorRateHigh",
		"FinChatWarehouseStageSlow",
		"FinChatChartFallbacksDetected",
		"FinChatHTTPErrorRateHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}

	requiredMetrics := []string{
		"finchat:slo_ask_latency_seconds_p95",
		"finchat:slo_pipeline_error_rate_15m",
		"finchat:slo_stage_latency_seconds_p95",
		"finchat:slo_chart_fallbacks_15m",
		"finchat:slo_http_error_rate_5m",
	}
	for _, metricName := range requiredMetrics {
		matched, err := regexp.MatchString(regexp.QuoteMeta(metricName), text)
		if err != nil {
			t.Fatalf("regexp error for metric %q: %v", metricName, err)
		}
		if !matched {
			t.Fatalf("rules missing metric reference %q", metricName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "prometheus-scrape.example.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scrape example: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "metrics_path: /v1/metrics") {
		t.Fatal("scrape example missing metrics path")
	}
	if !strings.Contains(text, "finchat_rules.yaml") {
		t.Fatal("scrape example missing alert rule file reference")
	}
	if !strings.Contains(text, "finchat_recording_rules.yaml") {
		t.Fatal("scrape example missing recording rule file reference")
	}
	if !strings.Contains(text, "job_name: finchat-api") {
		t.Fatal("scrape example missing finchat-api job")
	}
}

func TestPrometheusRecordingRulesReferenceExportedMetrics(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "finchat_recording_rules.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read recording rules file: %v", err)
	}
	text := string(content)

	requiredRecords := []string{
		"finchat:slo_ask_latency_seconds_p95",
		"finchat:slo_pipeline_error_rate_15m",
		"finchat:slo_stage_latency_seconds_p95",
		"finchat:slo_chart_fallbacks_15m",
		"finchat:slo_empty_results_ratio_1h",
		"finchat:slo_http_error_rate_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("recording rules missing record %q", recordName)
		}
	}

	exported := []string{
		"finchat_http_request_duration_seconds_bucket",
		"finchat_http_requests_total",
		"finchat_pipeline_runs_total",
		"finchat_pipeline_stage_duration_seconds_bucket",
		"finchat_chart_synthesis_failures_total",
		"finchat_warehouse_rows_returned_bucket",
	}
	for _, name := range exported {
		if !strings.Contains(text, name) {
			t.Fatalf("recording rules never read %q", name)
		}
	}
}

func TestAlertmanagerExampleContainsSeverityRouting(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "alertmanager", "alertmanager.example.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read alertmanager example: %v", err)
	}
	text := string(content)

	requiredTokens := []string{
		"receiver: finchat-default",
		"severity=\"critical\"",
		"severity=\"warning\"",
		"name: finchat-critical",
		"name: finchat-warning",
		"inhibit_rules:",
		"group_by: [alertname, service, severity]",
	}
	for _, token := range requiredTokens {
		if !strings.Contains(text, token) {
			t.Fatalf("alertmanager example missing token %q", token)
		}
	}
}

func TestComposeFileDefinesLocalDependencies(t *testing.T) {
	root := repoRoot(t)
	content, err := os.ReadFile(filepath.Join(root, "deployments", "docker-compose.yaml"))
	if err != nil {
		t.Fatalf("read compose file: %v", err)
	}
	text := string(content)
	for _, token := range []string{"postgres:", "POSTGRES_DB: finchat", "minio:", "9000:9000", "5432:5432"} {
		if !strings.Contains(text, token) {
			t.Fatalf("compose file missing %q", token)
		}
	}
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
