package storage

import (
	"testing"

	"velocityFee/internal/model"
)

type countingSink struct{ events []model.TierEvent }

func (c *countingSink) Publish(event model.TierEvent) {
	c.events = append(c.events, event)
}

func TestMultiSinkFanout(t *testing.T) {
	first := &countingSink{}
	second := &countingSink{}
	sink := MultiSink{first, nil, second}

	sink.Publish(model.TierEvent{Type: model.EventTierChange, Pool: "0xabc", NewTier: 4})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both sinks to receive the event, got %d and %d", len(first.events), len(second.events))
	}
	if first.events[0].NewTier != 4 {
		t.Errorf("event payload mismatch: %+v", first.events[0])
	}
}
