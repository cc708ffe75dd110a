package metrics

import "time"

// NopCollector は何も記録しないMetricsCollector実装。
// テストやメトリクス不要な構成で使用する。
type NopCollector struct{}

func (NopCollector) RecordSearch(string)                        {}
func (NopCollector) RecordSearchFailure(string)                 {}
func (NopCollector) RecordSearchLatency(string, time.Duration)  {}
func (NopCollector) RecordEmbedding()                           {}
func (NopCollector) RecordEmbeddingFailure()                    {}
func (NopCollector) RecordBackfillItems(int)                    {}
func (NopCollector) RecordMailSent()                            {}
func (NopCollector) RecordMailDropped()                         {}
func (NopCollector) RecordMailFailure()                         {}
func (NopCollector) RecordMailQueueDepth(int)                   {}
func (NopCollector) RecordUploadPresigned()                     {}
func (NopCollector) RecordCleanupPurged(int)                    {}
func (NopCollector) RecordHTTPRequest(string, int)              {}

// compile-time interface check
var _ MetricsCollector = NopCollector{}
