// Package patches replays replication diffs onto snapshots. The hub uses it
// to prove deltas against full state; clients apply the same rules.
package patches

import (
	"fmt"
	"sort"

	"minigolf/server/internal/course"
	"minigolf/server/internal/sim"
)

// Apply replays patches onto a base snapshot and returns the resulting
// snapshot. The base is not mutated. Tick bookkeeping is the caller's
// concern; Apply only folds in state changes.
func Apply(base sim.Snapshot, diffs []sim.Patch) (sim.Snapshot, error) {
	next := cloneSnapshot(base)

	for _, patch := range diffs {
		if patch.EntityID == "" {
			return sim.Snapshot{}, fmt.Errorf("apply patches: missing entity id for kind %q", patch.Kind)
		}

		switch patch.Kind {
		case sim.PatchPlayerRemoved:
			removePlayer(&next, patch.EntityID)
			continue
		case sim.PatchSessionPhase:
			payload, ok := payloadAsSessionPhase(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			next.Phase = payload.Phase
			continue
		case sim.PatchCourse:
			payload, ok := payloadAsCourse(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			applyCourseAdvance(&next, payload)
			continue
		}

		ball := findBall(&next, patch.EntityID)
		if ball == nil {
			return sim.Snapshot{}, fmt.Errorf("apply patches: unknown entity %q for kind %q", patch.EntityID, patch.Kind)
		}

		switch patch.Kind {
		case sim.PatchBallMotion:
			payload, ok := payloadAsBallMotion(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			ball.Position = payload.Position
			ball.Velocity = payload.Velocity
			ball.AtRest = payload.AtRest
			ball.CanMove = payload.AtRest
		case sim.PatchBallHole:
			payload, ok := payloadAsBallHole(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			ball.HoleIndex = payload.Hole
			if payload.CourseDone {
				ball.CourseDone = true
			} else {
				ball.Strokes = 0
			}
		case sim.PatchScore:
			payload, ok := payloadAsScore(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			ball.Strokes = payload.Strokes
		case sim.PatchScoreboard:
			payload, ok := payloadAsScoreboard(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			score := findScore(&next, patch.EntityID)
			if score == nil {
				return sim.Snapshot{}, fmt.Errorf("apply patches: unknown entity %q for kind %q", patch.EntityID, patch.Kind)
			}
			score.Holes = append([]int(nil), payload.Holes...)
			score.Total = payload.Total
		case sim.PatchPowerUpTaken:
			payload, ok := payloadAsPowerUpTaken(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			markConsumed(&next, payload.Hole, payload.Placement)
		case sim.PatchInventory:
			payload, ok := payloadAsInventory(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			if len(payload.PowerUps) == 0 {
				ball.PowerUps = nil
			} else {
				ball.PowerUps = append(ball.PowerUps[:0:0], payload.PowerUps...)
			}
		case sim.PatchEffect:
			payload, ok := payloadAsEffect(patch.Payload)
			if !ok {
				return sim.Snapshot{}, payloadError(patch)
			}
			if payload.Kind == "" {
				ball.Effect = nil
			} else {
				effect := payload
				ball.Effect = &effect
			}
		default:
			return sim.Snapshot{}, fmt.Errorf("apply patches: unsupported patch kind %q", patch.Kind)
		}
	}

	return next, nil
}

func cloneSnapshot(snapshot sim.Snapshot) sim.Snapshot {
	cloned := snapshot
	cloned.Balls = make([]sim.BallState, len(snapshot.Balls))
	for i, ball := range snapshot.Balls {
		cloned.Balls[i] = ball
		if len(ball.PowerUps) > 0 {
			cloned.Balls[i].PowerUps = append([]course.PowerUpKind(nil), ball.PowerUps...)
		}
		if ball.Effect != nil {
			effect := *ball.Effect
			cloned.Balls[i].Effect = &effect
		}
	}
	cloned.Scores = make([]sim.PlayerScore, len(snapshot.Scores))
	for i, score := range snapshot.Scores {
		cloned.Scores[i] = score
		cloned.Scores[i].Holes = append([]int(nil), score.Holes...)
	}
	cloned.Consumed = append([]sim.ConsumedPlacement(nil), snapshot.Consumed...)
	return cloned
}

func findBall(snapshot *sim.Snapshot, playerID string) *sim.BallState {
	for i := range snapshot.Balls {
		if snapshot.Balls[i].PlayerID == playerID {
			return &snapshot.Balls[i]
		}
	}
	return nil
}

func findScore(snapshot *sim.Snapshot, playerID string) *sim.PlayerScore {
	for i := range snapshot.Scores {
		if snapshot.Scores[i].PlayerID == playerID {
			return &snapshot.Scores[i]
		}
	}
	return nil
}

func removePlayer(snapshot *sim.Snapshot, playerID string) {
	for i := range snapshot.Balls {
		if snapshot.Balls[i].PlayerID == playerID {
			snapshot.Balls = append(snapshot.Balls[:i], snapshot.Balls[i+1:]...)
			break
		}
	}
	for i := range snapshot.Scores {
		if snapshot.Scores[i].PlayerID == playerID {
			snapshot.Scores = append(snapshot.Scores[:i], snapshot.Scores[i+1:]...)
			break
		}
	}
}

func applyCourseAdvance(snapshot *sim.Snapshot, payload sim.CoursePayload) {
	snapshot.CourseID = payload.CourseID
	snapshot.CourseIndex = payload.CourseIndex
	snapshot.Consumed = nil
	for i := range snapshot.Balls {
		snapshot.Balls[i].HoleIndex = 0
		snapshot.Balls[i].Strokes = 0
		snapshot.Balls[i].CourseDone = false
		snapshot.Balls[i].Effect = nil
	}
	for i := range snapshot.Scores {
		snapshot.Scores[i].Holes = nil
		snapshot.Scores[i].Total = 0
	}
}

func markConsumed(snapshot *sim.Snapshot, hole, placement int) {
	for _, consumed := range snapshot.Consumed {
		if consumed.Hole == hole && consumed.Placement == placement {
			return
		}
	}
	snapshot.Consumed = append(snapshot.Consumed, sim.ConsumedPlacement{Hole: hole, Placement: placement})
	sort.Slice(snapshot.Consumed, func(i, j int) bool {
		a, b := snapshot.Consumed[i], snapshot.Consumed[j]
		if a.Hole != b.Hole {
			return a.Hole < b.Hole
		}
		return a.Placement < b.Placement
	})
}

func payloadError(patch sim.Patch) error {
	return fmt.Errorf("apply patches: unexpected payload %T for %q", patch.Payload, patch.Kind)
}
