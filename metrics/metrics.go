package metrics

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// All tracked metrics are to be added here. UnitType of the metric i.e.
// Incr / Count / Latency must be prefixed with each metric name.
const (
	// Metrics of the daily computation stages.
	IncrRecordsProcessed   = "records_processed"
	IncrRecordsRejected    = "records_rejected"
	IncrRecordsDuplicate   = "records_duplicate"
	IncrRecordsOutOfWindow = "records_out_of_window"
	IncrSessionsAggregated = "sessions_aggregated"
	IncrTransactionsNetted = "transactions_netted"
	IncrTransactionsAudit  = "transactions_audited"

	// Metrics of partition publication and the quality gate.
	IncrPartitionsPublished = "partitions_published"
	IncrPartitionsBlocked   = "partitions_blocked"
	IncrPartitionsFailed    = "partitions_failed"
	IncrQualityRulesFailed  = "quality_rules_failed"
	IncrStageRetries        = "stage_retries"

	// Latency of one full window run in milliseconds.
	LatencyWindowRun = "window_run_latency"
)

var (
	latencyStats  = stats.Float64("task_latency", "The task latency in milliseconds", stats.UnitMilliseconds)
	guageStatsInt = stats.Int64("int_counter", "The number of recorded occurrences", stats.UnitDimensionless)
)

var (
	// MetricNameTag Label for the metric to be updated. To be used in filter.
	MetricNameTag, _ = tag.NewKey("metric_name")
)

var (
	latencyView = &view.View{
		Name:        "latency_view",
		Measure:     latencyStats,
		Description: "The distribution of the task latencies",
		// [>=0ms, >=100ms, >=200ms, >=400ms, >=1s, >=2s, >=4s]
		Aggregation: view.Distribution(0, 100, 200, 400, 1000, 2000, 4000),
		TagKeys:     []tag.Key{MetricNameTag},
	}

	countIntView = &view.View{
		Measure:     guageStatsInt,
		Name:        "count_int_view",
		Description: "Count int view",
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{MetricNameTag},
	}
)

// logExporter writes aggregated view rows to the structured log. Batch jobs
// run to completion and have no scrape endpoint to expose.
type logExporter struct{}

func (e *logExporter) ExportView(viewData *view.Data) {
	for _, row := range viewData.Rows {
		fields := log.Fields{"view": viewData.View.Name}
		for _, t := range row.Tags {
			fields[t.Key.Name()] = t.Value
		}
		switch data := row.Data.(type) {
		case *view.SumData:
			fields["value"] = data.Value
		case *view.DistributionData:
			fields["count"] = data.Count
			fields["mean"] = data.Mean
		}
		log.WithFields(fields).Info("Metrics.")
	}
}

// InitMetrics Registers the views and starts the periodic log exporter.
func InitMetrics(env, appName string) {
	logCtx := log.WithField("Tag", "Metrics")
	logCtx.WithFields(log.Fields{"env": env, "app_name": appName}).
		Info("Initializing metrics exporter ...")

	if err := view.Register(latencyView, countIntView); err != nil {
		log.WithError(err).Error("Failed to register the view")
		return
	}

	view.RegisterExporter(&logExporter{})
	view.SetReportingPeriod(time.Minute)
}

// Increment Increment the given metric by 1.
func Increment(metricName string) {
	CountInt(metricName, int64(1))
}

// CountInt Reports the count value for given int Metric.
func CountInt(metricName string, count int64) {
	ctx, err := tag.New(context.Background(), tag.Upsert(MetricNameTag, metricName))
	if err != nil {
		log.WithError(err).Error("Failed to record CountInt")
		return
	}
	stats.Record(ctx, guageStatsInt.M(count))
}

// RecordLatency Records latency as a metric in 'ms'.
func RecordLatency(metricName string, latency float64) {
	ctx, err := tag.New(context.Background(), tag.Upsert(MetricNameTag, metricName))
	if err != nil {
		log.WithError(err).Error("Failed to record Latency")
		return
	}
	stats.Record(ctx, latencyStats.M(latency))
}
