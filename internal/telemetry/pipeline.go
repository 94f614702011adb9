package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"rescueops/internal/geo"
	"rescueops/internal/mission"
	"rescueops/internal/queue"
)

// MaxConsecutiveParseFailures tears a vehicle's stream down once reached.
const MaxConsecutiveParseFailures = 3

// QueuePrefix is prepended to the roster slot name to form the queue name.
const QueuePrefix = "telemetry_"

// ZoneSource exposes the keep-out polygons registered for the current
// mission. Implemented by the mission state machine.
type ZoneSource interface {
	KeepOutZones() [][]geo.Coordinate
}

// Pipeline ingests telemetry: one independent consume loop per roster slot,
// each parsing, enriching, merging, persisting, and publishing readings.
// One stream's malformed input cannot starve or corrupt another's.
type Pipeline struct {
	source    queue.Source
	store     *Store
	tracker   *Tracker
	zones     ZoneSource
	writer    RecordWriter
	publisher Publisher
}

// NewPipeline wires the ingestion dependencies together.
func NewPipeline(source queue.Source, store *Store, tracker *Tracker, zones ZoneSource, writer RecordWriter, publisher Publisher) *Pipeline {
	return &Pipeline{
		source:    source,
		store:     store,
		tracker:   tracker,
		zones:     zones,
		writer:    writer,
		publisher: publisher,
	}
}

// Run supervises the consume loop for one roster slot. A stream failure,
// including a tripped malformed-message breaker, takes down only this
// stream: the error is logged (the breaker already published an error
// event) and not propagated, so sibling loops and servers keep running.
// Only context cancellation reaches the caller.
func (p *Pipeline) Run(ctx context.Context, role mission.Role) error {
	err := p.Consume(ctx, role)
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("[Ingest] stream %s%s down: %v", QueuePrefix, role.Queue(), err)
	return nil
}

// Consume runs the loop for one roster slot until the stream ends, ctx is
// done, or the malformed-message circuit breaker trips.
func (p *Pipeline) Consume(ctx context.Context, role mission.Role) error {
	queueName := QueuePrefix + role.Queue()
	deliveries, err := p.source.Consume(ctx, queueName)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queueName, err)
	}
	log.Printf("[Ingest] consuming %s", queueName)

	failures := 0
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			var reading Reading
			if err := json.Unmarshal(d.Body, &reading); err != nil {
				failures++
				log.Printf("[Ingest] %s: unparseable message (attempt %d): %v", queueName, failures, err)
				if rejErr := d.Reject(); rejErr != nil {
					return fmt.Errorf("reject on %s: %w", queueName, rejErr)
				}
				if failures >= MaxConsecutiveParseFailures {
					msg := fmt.Sprintf("stream %s closed after %d consecutive invalid messages", queueName, failures)
					p.publisher.Error("telemetry", msg)
					return fmt.Errorf("%s: circuit breaker tripped after %d parse failures", queueName, failures)
				}
				continue
			}
			failures = 0
			if err := p.process(role, reading, d); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// process enriches one parsed reading, merges it, persists a record, and
// publishes the merged snapshot before acknowledging.
func (p *Pipeline) process(role mission.Role, reading Reading, d queue.Delivery) error {
	if p.tracker.Refresh(role) {
		log.Printf("[Ingest] vehicle %s reconnected", role)
		p.store.SetStatusIf(role, StatusDisconnected, StatusConnected)
	}

	// Status derivation, strict priority order: first match wins.
	point := geo.Coordinate{Lat: reading.CurrentPosition.Latitude, Long: reading.CurrentPosition.Longitude}
	switch {
	case reading.SignalStrength < BadSignalThresholdDBM:
		reading.VehicleStatus = StatusBadSignal
	case geo.NearAnyVertex(point, p.zones.KeepOutZones(), KeepOutProximityM):
		reading.VehicleStatus = StatusNearKeepOut
	case reading.VehicleStatus == "" || reading.VehicleStatus == StatusDisconnected:
		if p.tracker.Connected(role) {
			reading.VehicleStatus = StatusConnected
		}
	}

	p.store.Merge(role, reading)

	if err := p.writer.Write(p.record(reading)); err != nil {
		log.Printf("[Ingest] record write failed for %s: %v", role, err)
	}

	snap := p.store.Snapshot()
	if err := p.publisher.TelemetryUpdate(snap); err != nil {
		log.Printf("[Ingest] snapshot publish failed, falling back: %v", err)
		p.publisher.Notify("telemetry_update", snap)
	}

	if err := d.Ack(); err != nil {
		return fmt.Errorf("ack for %s: %w", role, err)
	}
	return nil
}

func (p *Pipeline) record(r Reading) Record {
	pos, _ := json.Marshal(r.CurrentPosition)
	req, _ := json.Marshal(r.RequestCoordinate)
	return Record{
		VehicleID:         r.VehicleID,
		SignalStrength:    r.SignalStrength,
		Pitch:             r.Pitch,
		Yaw:               r.Yaw,
		Roll:              r.Roll,
		Speed:             r.Speed,
		Altitude:          r.Altitude,
		Battery:           r.BatteryLife,
		Position:          string(pos),
		RequestedPosition: string(req),
		Status:            r.VehicleStatus,
		Timestamp:         p.store.now().UTC(),
	}
}
