package recorder

import "ZakatSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) error { return nil }

func (n *NoopRecorder) RecordPayment(_ *PaymentRecord) error { return nil }

func (n *NoopRecorder) RecordNisabFetch(_ model.NisabResolution) error { return nil }

func (n *NoopRecorder) Close() error { return nil }
