package main

import (
	"reflect"
	"testing"
)

// TestEventSinks tests fan-out order and nil entries
func TestEventSinks(t *testing.T) {
	var got []string
	record := func(name string) EventSink {
		return EventFunc(func(e CouncilEvent) { got = append(got, name+":"+e.Type) })
	}

	sinks := EventSinks{record("first"), nil, record("second")}
	sinks.Publish(CouncilEvent{Type: EventStage1Start})
	sinks.Publish(CouncilEvent{Type: EventComplete})

	want := []string{
		"first:stage1_start", "second:stage1_start",
		"first:complete", "second:complete",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Delivered %v, want %v", got, want)
	}
}

// TestEmptyEventSinks checks a nil fan-out is a no-op
func TestEmptyEventSinks(t *testing.T) {
	var sinks EventSinks
	sinks.Publish(CouncilEvent{Type: EventError})
}
