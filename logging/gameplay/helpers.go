package gameplay

import (
	"context"

	"minigolf/server/logging"
)

const (
	// EventStroke is emitted when a shot is accepted for a ball.
	EventStroke logging.EventType = "gameplay.stroke"
	// EventHoleComplete is emitted when a resting ball settles inside the hole sensor.
	EventHoleComplete logging.EventType = "gameplay.hole_complete"
	// EventPowerUpPickup is emitted when a ball consumes a world power-up placement.
	EventPowerUpPickup logging.EventType = "gameplay.power_up_pickup"
	// EventOutOfBounds is emitted when a ball is pulled back inside the course.
	EventOutOfBounds logging.EventType = "gameplay.out_of_bounds"
)

// StrokePayload captures an accepted shot.
type StrokePayload struct {
	Hole    int     `json:"hole"`
	Strokes int     `json:"strokes"`
	Impulse float64 `json:"impulse"`
}

// HoleCompletePayload captures a scored hole.
type HoleCompletePayload struct {
	Hole    int `json:"hole"`
	Strokes int `json:"strokes"`
}

// PowerUpPickupPayload captures a consumed placement.
type PowerUpPickupPayload struct {
	Hole      int    `json:"hole"`
	Placement int    `json:"placement"`
	Kind      string `json:"kind"`
}

// OutOfBoundsPayload captures a ball reset.
type OutOfBoundsPayload struct {
	Hole    int  `json:"hole"`
	Penalty bool `json:"penalty"`
}

func Stroke(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StrokePayload) {
	publish(ctx, pub, EventStroke, tick, actor, payload)
}

func HoleComplete(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload HoleCompletePayload) {
	publish(ctx, pub, EventHoleComplete, tick, actor, payload)
}

func PowerUpPickup(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PowerUpPickupPayload) {
	publish(ctx, pub, EventPowerUpPickup, tick, actor, payload)
}

func OutOfBounds(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload OutOfBoundsPayload) {
	publish(ctx, pub, EventOutOfBounds, tick, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
