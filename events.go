package main

import "time"

// Council event types, in the order a run emits them.
const (
	EventDispatchComplete = "dispatch_complete"
	EventStage1Start      = "stage1_start"
	EventStage1Complete   = "stage1_complete"
	EventStage2Start      = "stage2_start"
	EventStage2Complete   = "stage2_complete"
	EventStage3Start      = "stage3_start"
	EventStage3Complete   = "stage3_complete"
	EventTitleComplete    = "title_complete"
	EventComplete         = "complete"
	EventError            = "error"
)

// CouncilEvent reports progress of one run.
type CouncilEvent struct {
	RunID     string    `json:"run_id,omitempty"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Metadata  any       `json:"metadata,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives council events. Publish must not block the run for long.
type EventSink interface {
	Publish(event CouncilEvent)
}

// EventFunc adapts a function to EventSink.
type EventFunc func(CouncilEvent)

// Publish calls f.
func (f EventFunc) Publish(event CouncilEvent) { f(event) }

// EventSinks fans an event out to several sinks; nil entries are skipped.
type EventSinks []EventSink

// Publish delivers event to every sink in order.
func (s EventSinks) Publish(event CouncilEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.Publish(event)
		}
	}
}
