package fund

import (
	"context"
	"log/slog"

	"github.com/holiman/uint256"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/sdk"
)

// events are structured log lines with a short code so watchers can grep them.

// emitMembershipRequestEvent lets the manager see a candidate is waiting.
func emitMembershipRequestEvent(logger *slog.Logger, candidate sdk.Address, req *MembershipRequest) {
	logger.Info("membership requested",
		"event", "fr",
		"candidate", candidate.Hex(),
		"token", req.Token.Hex(),
		"initial", req.InitialContribution.Dec(),
		"lockup", req.LockupDuration,
		"payout", req.PayoutDuration,
		"recurring", req.Recurring != nil,
	)
}

// emitMembershipClosedEvent covers deny and cancel, outcome tells them apart.
func emitMembershipClosedEvent(logger *slog.Logger, candidate sdk.Address, outcome string) {
	logger.Info("membership request closed", "event", "fd", "candidate", candidate.Hex(), "outcome", outcome)
}

func emitJoinedEvent(logger *slog.Logger, member sdk.Address, d *MemberDetails) {
	logger.Info("member joined",
		"event", "fj",
		"member", member.Hex(),
		"unlock", d.UnlockTime,
		"final", d.FinalBenefitTime,
	)
}

func emitContributionEvent(logger *slog.Logger, beneficiary sdk.Address, c *Contribution, kind string, shareDec uint8) {
	logger.Info("contribution",
		"event", "fc",
		"kind", kind,
		"beneficiary", beneficiary.Hex(),
		"contributor", c.Contributor.Hex(),
		"token", c.Token.Hex(),
		"qty", c.Quantity.Dec(),
		"shares", fixedpoint.Format(c.Shares, shareDec),
	)
}

func emitWithdrawalEvent(logger *slog.Logger, member sdk.Address, shareQty *uint256.Int, shareDec uint8, value *uint256.Int, denomDec uint8) {
	logger.Info("benefits withdrawn",
		"event", "fw",
		"member", member.Hex(),
		"shares", fixedpoint.Format(shareQty, shareDec),
		"value", fixedpoint.Format(value, denomDec),
	)
}

// emitManagementEvent mirrors each audit log entry, failures included.
func emitManagementEvent(logger *slog.Logger, id uint64, e *LogEntry) {
	level := slog.LevelInfo
	if e.Result != ResultSuccess {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "management action",
		"event", "fl",
		"id", id,
		"type", e.Type.String(),
		"token", e.Token.Hex(),
		"qty", e.Quantity.Dec(),
		"account", e.Account.Hex(),
		"result", e.Result.String(),
		"annotation", e.Annotation,
	)
}

func emitFundValueEvent(logger *slog.Logger, v *FundValue, denomDec uint8) {
	logger.Info("fund value recorded", "event", "fv", "value", fixedpoint.Format(v.Value, denomDec), "ts", v.Timestamp)
}

// emitParamChangedEvent spells out field diffs so auditors can track sensitive flips.
func emitParamChangedEvent(logger *slog.Logger, field, old, new string) {
	logger.Info("fund parameter changed", "event", "fp", "field", field, "old", old, "new", new)
}

func emitScheduleEvent(logger *slog.Logger, beneficiary, contributor sdk.Address, action string) {
	logger.Info("recurring schedule", "event", "fs", "beneficiary", beneficiary.Hex(), "contributor", contributor.Hex(), "action", action)
}
