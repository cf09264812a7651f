package board

import (
	"log/slog"

	"pooled_fund/sdk"
)

// emitMotionCreatedEvent is the "mc" line, one per initiated motion.
func emitMotionCreatedEvent(logger *slog.Logger, m *Motion) {
	logger.Info("motion created",
		"event", "mc",
		"id", m.ID,
		"type", m.Type.String(),
		"by", m.Initiator.Hex(),
		"expires", m.ExpiresAt,
	)
}

// emitVoteEvent carries the tallies after the vote so they can be replayed from logs only.
func emitVoteEvent(logger *slog.Logger, m *Motion, director sdk.Address, v Vote) {
	logger.Info("vote cast",
		"event", "mv",
		"id", m.ID,
		"by", director.Hex(),
		"vote", v.String(),
		"for", m.VotesFor,
		"against", m.VotesAgainst,
		"abstain", m.Abstentions,
	)
}

func emitStatusChangedEvent(logger *slog.Logger, id uint64, from, to Status) {
	logger.Info("motion status changed", "event", "ms", "id", id, "from", from.String(), "to", to.String())
}

// emitExecutedEvent logs failures at warn so they stand out, a failed execution is never retried.
func emitExecutedEvent(logger *slog.Logger, m *Motion, execErr error) {
	if execErr != nil {
		logger.Warn("motion execution failed", "event", "mx", "id", m.ID, "type", m.Type.String(), "error", execErr)
		return
	}
	logger.Info("motion executed", "event", "mx", "id", m.ID, "type", m.Type.String())
}

func emitDirectorsChangedEvent(logger *slog.Logger, action string, directors []sdk.Address) {
	hexes := make([]string, len(directors))
	for i, d := range directors {
		hexes[i] = d.Hex()
	}
	logger.Info("directors changed", "event", "md", "action", action, "directors", hexes)
}
