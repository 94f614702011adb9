// Package command dispatches zone and search-area payloads to vehicles.
package command

import (
	"context"

	"rescueops/internal/geo"
)

// Kind identifies the command carried by a zone payload.
type Kind int

const (
	KindKeepIn     Kind = 2
	KindKeepOut    Kind = 3
	KindSearchArea Kind = 4
)

// TargetAll addresses every vehicle at once.
const TargetAll = "ALL"

// Sender delivers one zone command and waits for the ack.
type Sender interface {
	SendZone(ctx context.Context, target string, kind Kind, coords []geo.Coordinate) error
}

// Broadcaster converts zone and search-area polygons into bounded command
// payloads. Polygons below geo.MinPolygonPoints are skipped; payloads are
// capped at geo.MaxBroadcastPoints coordinates.
type Broadcaster struct {
	sender Sender
}

// NewBroadcaster wraps a sender.
func NewBroadcaster(sender Sender) *Broadcaster {
	return &Broadcaster{sender: sender}
}

// KeepIn sends every usable keep-in polygon to all vehicles.
func (b *Broadcaster) KeepIn(ctx context.Context, polygons [][]geo.Coordinate) error {
	return b.sendAll(ctx, KindKeepIn, polygons)
}

// KeepOut sends every usable keep-out polygon to all vehicles.
func (b *Broadcaster) KeepOut(ctx context.Context, polygons [][]geo.Coordinate) error {
	return b.sendAll(ctx, KindKeepOut, polygons)
}

// SearchArea sends a stage's search area to one vehicle.
func (b *Broadcaster) SearchArea(ctx context.Context, target string, polygon []geo.Coordinate) error {
	if len(polygon) < geo.MinPolygonPoints {
		return nil
	}
	return b.sender.SendZone(ctx, target, KindSearchArea, cap6(polygon))
}

func (b *Broadcaster) sendAll(ctx context.Context, kind Kind, polygons [][]geo.Coordinate) error {
	for _, polygon := range polygons {
		if len(polygon) < geo.MinPolygonPoints {
			continue
		}
		if err := b.sender.SendZone(ctx, TargetAll, kind, cap6(polygon)); err != nil {
			return err
		}
	}
	return nil
}

func cap6(polygon []geo.Coordinate) []geo.Coordinate {
	if len(polygon) > geo.MaxBroadcastPoints {
		polygon = polygon[:geo.MaxBroadcastPoints]
	}
	return append([]geo.Coordinate(nil), polygon...)
}
