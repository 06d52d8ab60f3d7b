// Package metrics records engine run metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics can be
// enabled without nil checks at call sites:
//
//	rec := metrics.NewPrometheusRecorder(reg)
//	eng := engine.New(engine.WithRecorder(rec))
//
// The Prometheus implementation registers its collectors under the
// "sitepipe" namespace; HTTPHandler exposes them for scraping.
package metrics
