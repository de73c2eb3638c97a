package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message is a consumed broker message. Commit acknowledges it; it may be nil
// for sources without offsets.
type Message struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// DecodeReportMessage parses a report announced by the ingester. Reports
// without an ID or city cannot be matched and are rejected.
func DecodeReportMessage(m Message) (Report, error) {
	var r Report
	if err := json.Unmarshal(m.Value, &r); err != nil {
		return Report{}, fmt.Errorf("decode report message: %w", err)
	}
	if r.ID == "" {
		return Report{}, errors.New("report message has no id")
	}
	if r.City == "" {
		return Report{}, fmt.Errorf("report %s has no city", r.ID)
	}
	return r, nil
}
