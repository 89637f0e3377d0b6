package domain

import (
	"context"
)

// TransactionSource loads raw transactions for a configured source ID,
// applying the analysis-window date filter unless the source disables
// it.
type TransactionSource interface {
	LoadTransactions(ctx context.Context, sourceID string) ([]Transaction, error)
}

// SegmentSink writes the segmented output table to a configured sink.
type SegmentSink interface {
	WriteSegments(ctx context.Context, sinkID string, rows []SegmentRow) error
}
