package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// sample returns the value of the first series of a gathered family whose
// labels include want. Counters, gauges and histogram sample counts are read.
func sample(reg *prometheus.Registry, name string, want map[string]string) (float64, bool) {
	families, err := reg.Gather()
	if err != nil {
		return 0, false
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue series
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), true
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), true
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default refresh interval", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordRows(2, 1)

			Convey("Then names and constant labels should follow the options", func() {
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
				v, ok := sample(registry, "test_unit_rows_accepted_total", map[string]string{"env": "test"})
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)
			})
		})

		Convey("When empty options are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithCustomLabels(nil),
				WithPrometheusRegistry(registry),
			)
			manager.RecordRows(1, 0)

			Convey("Then the defaults should be kept", func() {
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				_, ok := sample(registry, "gradelens_ingest_rows_accepted_total", nil)
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestIngestionMetrics(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When uploads are recorded by outcome", func() {
			So(m.RecordUpload(OutcomeAccepted), ShouldBeNil)
			So(m.RecordUpload(OutcomeAccepted), ShouldBeNil)
			So(m.RecordUpload(OutcomeParseError), ShouldBeNil)
			err := m.RecordUpload(Outcome("exploded"))

			Convey("Then each outcome has its own series and unknown outcomes are refused", func() {
				v, _ := sample(registry, "gradelens_ingest_uploads_total", map[string]string{"outcome": "accepted"})
				So(v, ShouldEqual, 2)
				v, _ = sample(registry, "gradelens_ingest_uploads_total", map[string]string{"outcome": "parse_error"})
				So(v, ShouldEqual, 1)
				So(errors.Is(err, ErrUnknownOutcome), ShouldBeTrue)
				_, ok := sample(registry, "gradelens_ingest_uploads_total", map[string]string{"outcome": "exploded"})
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When row counts and latencies are recorded", func() {
			m.RecordRows(10, 2)
			m.RecordRows(5, 0)
			m.RecordRows(-1, -1)
			m.RecordParseLatency(3)
			m.RecordPipelineLatency(7)
			m.RecordUploadBytes(4096)

			Convey("Then the counters accumulate and negatives are ignored", func() {
				v, _ := sample(registry, "gradelens_ingest_rows_accepted_total", nil)
				So(v, ShouldEqual, 15)
				v, _ = sample(registry, "gradelens_ingest_rows_rejected_total", nil)
				So(v, ShouldEqual, 2)
				v, _ = sample(registry, "gradelens_ingest_parse_latency_milliseconds", nil)
				So(v, ShouldEqual, 1)
				v, _ = sample(registry, "gradelens_ingest_upload_bytes", nil)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When a dataset snapshot is published twice", func() {
			m.UpdateDataset(Dataset{
				Records: 4, UniqueStudents: 2, AtRisk: 1, PassRate: 75, AverageScore: 61.5,
				RiskLevels: map[string]int{"high": 1, "none": 3},
				LoadedAt:   time.Unix(1700000000, 0),
			})
			m.UpdateDataset(Dataset{
				Records:    1,
				RiskLevels: map[string]int{"low": 1},
			})

			Convey("Then the gauges reflect only the latest snapshot", func() {
				v, _ := sample(registry, "gradelens_ingest_dataset_records", nil)
				So(v, ShouldEqual, 1)
				v, _ = sample(registry, "gradelens_ingest_dataset_pass_rate_percent", nil)
				So(v, ShouldEqual, 0)
				_, ok := sample(registry, "gradelens_ingest_dataset_risk_level_records", map[string]string{"level": "high"})
				So(ok, ShouldBeFalse)
				v, _ = sample(registry, "gradelens_ingest_dataset_risk_level_records", map[string]string{"level": "low"})
				So(v, ShouldEqual, 1)
				v, _ = sample(registry, "gradelens_ingest_dataset_loaded_unix", nil)
				So(v, ShouldEqual, 0)
			})
		})

		Convey("When standings and batch metrics are recorded", func() {
			m.UpdateStandingsSize(30)
			m.RecordStandingsRebuild(1.5)
			m.RecordStandingsQueryLatency(0.1)
			m.RecordBatchJob("ok", 4)
			m.RecordBatchJob("ok", 6)
			m.RecordBatchJob("failed", 1)
			m.UpdateBatchQueueDepth(3)
			m.UpdateBatchWorkers(2)

			Convey("Then each series is present", func() {
				v, _ := sample(registry, "gradelens_ingest_standings_students", nil)
				So(v, ShouldEqual, 30)
				v, _ = sample(registry, "gradelens_ingest_standings_rebuild_milliseconds", nil)
				So(v, ShouldEqual, 1)
				v, _ = sample(registry, "gradelens_ingest_batch_jobs_total", map[string]string{"outcome": "ok"})
				So(v, ShouldEqual, 2)
				v, _ = sample(registry, "gradelens_ingest_batch_job_latency_milliseconds", nil)
				So(v, ShouldEqual, 3)
				v, _ = sample(registry, "gradelens_ingest_batch_queue_depth", nil)
				So(v, ShouldEqual, 3)
				v, _ = sample(registry, "gradelens_ingest_batch_workers", nil)
				So(v, ShouldEqual, 2)
			})
		})

		Convey("When HTTP, query and error metrics are recorded", func() {
			m.RecordHTTPRequest("/upload", "POST", "200")
			m.RecordHTTPRequestDuration("/upload", "POST", "200", 12)
			m.RecordQueryLatency(0.2)
			m.UpdateFilteredRecords(42)
			m.RecordErrorByComponent("parser", "parse_error")
			m.RecordErrorByEndpoint("/upload", "POST", "bad_request")

			Convey("Then each series is present", func() {
				v, _ := sample(registry, "gradelens_ingest_http_requests_total", map[string]string{"endpoint": "/upload"})
				So(v, ShouldEqual, 1)
				v, _ = sample(registry, "gradelens_ingest_filtered_records", nil)
				So(v, ShouldEqual, 42)
				v, _ = sample(registry, "gradelens_ingest_errors_by_component_total", map[string]string{"component": "parser"})
				So(v, ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording through the package helpers", func() {
			So(func() {
				RecordUpload(OutcomeAccepted)
				RecordUpload(Outcome("bogus"))
				RecordRows(3, 1)
				RecordUploadBytes(100)
				RecordParseLatency(1)
				RecordPipelineLatency(2)
				UpdateDataset(Dataset{Records: 3})
				RecordQueryLatency(0.1)
				UpdateFilteredRecords(3)
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 1)
				RecordErrorByComponent("", "")
				RecordErrorByEndpoint("", "", "")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)

			Convey("Then the series land in the custom registry", func() {
				So(Default(), ShouldNotBeNil)
				_, ok := sample(GetRegistry(), "gradelens_ingest_rows_accepted_total", nil)
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording metrics concurrently", func() {
			done := make(chan bool, 10)
			for i := 0; i < 10; i++ {
				go func() {
					for j := 0; j < 100; j++ {
						m.RecordRows(1, 0)
						m.UpdateFilteredRecords(j)
						m.RecordHTTPRequest("/records", "GET", "200")
					}
					done <- true
				}()
			}
			for i := 0; i < 10; i++ {
				<-done
			}

			Convey("Then every increment is counted", func() {
				v, _ := sample(registry, "gradelens_ingest_rows_accepted_total", nil)
				So(v, ShouldEqual, 1000)
			})
		})
	})
}
