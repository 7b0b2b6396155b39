package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with tailor defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "tailor")
				So(manager.subsystem, ShouldEqual, "measure")
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.calibrations.WithLabelValues(OutcomeSuccess).Inc()

			Convey("Then names and labels should follow the options", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_pfx_calibrations_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "tailor")
				So(manager.subsystem, ShouldEqual, "measure")
				So(manager.histogramBuckets, ShouldResemble, LatencyBucketsMs)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestLatencyBuckets(t *testing.T) {
	Convey("Given a manager with default buckets", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))
		manager.measurementLatency.Observe(1500)
		manager.httpRequestDuration.WithLabelValues("/measure", "POST", "200").Observe(3000)

		Convey("When gathering the millisecond histograms", func() {
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			bounds := map[string][]float64{}
			for _, f := range families {
				if !strings.HasSuffix(f.GetName(), "_milliseconds") {
					continue
				}
				for _, m := range f.GetMetric() {
					var ub []float64
					for _, b := range m.GetHistogram().GetBucket() {
						ub = append(ub, b.GetUpperBound())
					}
					bounds[f.GetName()] = ub
				}
			}

			Convey("Then the buckets span seconds of latency, not fractions of a millisecond", func() {
				for _, name := range []string{
					"tailor_measure_measurement_latency_milliseconds",
					"tailor_measure_http_request_duration_milliseconds",
				} {
					ub, ok := bounds[name]
					So(ok, ShouldBeTrue)
					So(ub, ShouldResemble, LatencyBucketsMs)
					So(ub[len(ub)-1], ShouldBeGreaterThanOrEqualTo, 5000)
				}
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline outcomes", func() {
			before := testutil.ToFloat64(globalManager.measurements.WithLabelValues(OutcomeNoBody))
			RecordMeasurement(OutcomeNoBody)
			RecordMeasurement(OutcomeNoBody)

			Convey("Then the outcome counter advances", func() {
				after := testutil.ToFloat64(globalManager.measurements.WithLabelValues(OutcomeNoBody))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording saves and duplicates", func() {
			saves := testutil.ToFloat64(globalManager.saves.WithLabelValues(OutcomeSuccess))
			dups := testutil.ToFloat64(globalManager.saveDuplicates)
			RecordSave(OutcomeSuccess)
			RecordSaveDuplicate()

			Convey("Then both counters advance", func() {
				So(testutil.ToFloat64(globalManager.saves.WithLabelValues(OutcomeSuccess))-saves, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.saveDuplicates)-dups, ShouldEqual, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateActiveSessions(3)
			UpdateUsersTracked(7)
			UpdateRecordsTotal(21)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.activeSessions), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.usersTracked), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.recordsTotal), ShouldEqual, 21)
			})
		})

		Convey("When recording latencies and errors", func() {
			So(func() {
				RecordCalibration(OutcomeInvalidInput)
				RecordMeasurementLatency(12.5)
				RecordFrameFailure()
				RecordDetectorLatency(40)
				RecordDetectorError()
				RecordRepositoryWriteLatency("file", 1.2)
				RecordRepositoryLoadLatency("sql", 0.8)
				RecordHTTPRequest("/measure", "POST", "200")
				RecordHTTPRequestDuration("/measure", "POST", "200", 15.0)
				RecordErrorByComponent("detector", "timeout")
				RecordErrorByType("missing_landmarks", "warning")
				RecordErrorByEndpoint("/measure", "POST", "missing_landmarks")
				RecordErrorLatency("history", "io", 3.0)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			RecordCalibration(OutcomeSuccess)
			families, err := GetRegistry().Gather()

			Convey("Then only tailor metrics are exposed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "tailor_measure_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestSinceMs(t *testing.T) {
	Convey("Given a start time in the past", t, func() {
		start := time.Now().Add(-50 * time.Millisecond)

		Convey("Then the elapsed milliseconds are at least the offset", func() {
			So(SinceMs(start), ShouldBeGreaterThanOrEqualTo, 50)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.frameFailures)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					RecordFrameFailure()
				}
			}()
		}
		wg.Wait()

		Convey("Then no increments are lost", func() {
			So(testutil.ToFloat64(globalManager.frameFailures)-before, ShouldEqual, 1000)
		})
	})
}
