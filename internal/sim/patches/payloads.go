package patches

import "minigolf/server/internal/sim"

func payloadAsBallMotion(value any) (sim.BallMotionPayload, bool) {
	switch v := value.(type) {
	case sim.BallMotionPayload:
		return v, true
	case *sim.BallMotionPayload:
		if v == nil {
			return sim.BallMotionPayload{}, false
		}
		return *v, true
	default:
		return sim.BallMotionPayload{}, false
	}
}

func payloadAsBallHole(value any) (sim.BallHolePayload, bool) {
	switch v := value.(type) {
	case sim.BallHolePayload:
		return v, true
	case *sim.BallHolePayload:
		if v == nil {
			return sim.BallHolePayload{}, false
		}
		return *v, true
	default:
		return sim.BallHolePayload{}, false
	}
}

func payloadAsScore(value any) (sim.ScorePayload, bool) {
	switch v := value.(type) {
	case sim.ScorePayload:
		return v, true
	case *sim.ScorePayload:
		if v == nil {
			return sim.ScorePayload{}, false
		}
		return *v, true
	default:
		return sim.ScorePayload{}, false
	}
}

func payloadAsScoreboard(value any) (sim.ScoreboardPayload, bool) {
	switch v := value.(type) {
	case sim.ScoreboardPayload:
		return v, true
	case *sim.ScoreboardPayload:
		if v == nil {
			return sim.ScoreboardPayload{}, false
		}
		return *v, true
	default:
		return sim.ScoreboardPayload{}, false
	}
}

func payloadAsPowerUpTaken(value any) (sim.PowerUpTakenPayload, bool) {
	switch v := value.(type) {
	case sim.PowerUpTakenPayload:
		return v, true
	case *sim.PowerUpTakenPayload:
		if v == nil {
			return sim.PowerUpTakenPayload{}, false
		}
		return *v, true
	default:
		return sim.PowerUpTakenPayload{}, false
	}
}

func payloadAsInventory(value any) (sim.InventoryPayload, bool) {
	switch v := value.(type) {
	case sim.InventoryPayload:
		return v, true
	case *sim.InventoryPayload:
		if v == nil {
			return sim.InventoryPayload{}, false
		}
		return *v, true
	default:
		return sim.InventoryPayload{}, false
	}
}

func payloadAsEffect(value any) (sim.EffectPayload, bool) {
	switch v := value.(type) {
	case sim.EffectPayload:
		return v, true
	case *sim.EffectPayload:
		if v == nil {
			return sim.EffectPayload{}, false
		}
		return *v, true
	default:
		return sim.EffectPayload{}, false
	}
}

func payloadAsSessionPhase(value any) (sim.SessionPhasePayload, bool) {
	switch v := value.(type) {
	case sim.SessionPhasePayload:
		return v, true
	case *sim.SessionPhasePayload:
		if v == nil {
			return sim.SessionPhasePayload{}, false
		}
		return *v, true
	default:
		return sim.SessionPhasePayload{}, false
	}
}

func payloadAsCourse(value any) (sim.CoursePayload, bool) {
	switch v := value.(type) {
	case sim.CoursePayload:
		return v, true
	case *sim.CoursePayload:
		if v == nil {
			return sim.CoursePayload{}, false
		}
		return *v, true
	default:
		return sim.CoursePayload{}, false
	}
}
