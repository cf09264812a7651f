package fund

import "pooled_fund/sdk"

// Storage layout. Every key starts with one prefix byte, the sets and logs
// append their own suffixes behind it.
const (
	// kParams stores the encoded Parameters, presence means initialized.
	kParams byte = 0x01
	// kMembers is the iterable member set.
	kMembers byte = 0x02
	// kApproved is the set of tokens the fund may hold.
	kApproved byte = 0x03
	// kOwned caches approved tokens with a positive balance.
	kOwned byte = 0x04
	// kShares is the share ledger.
	kShares byte = 0x05
	// kMember houses encoded MemberDetails.
	kMember byte = 0x06
	// kRequest holds pending membership requests.
	kRequest byte = 0x07
	// kContributor flags (member, contributor) permissions.
	kContributor byte = 0x08
	// kSchedule stores recurring schedules by (beneficiary, contributor).
	kSchedule byte = 0x09
	// kContributions prefixes the per member contribution logs.
	kContributions byte = 0x0a
	// kFundValues is the valuation time series.
	kFundValues byte = 0x0b
	// kManagementLog is the manager audit trail.
	kManagementLog byte = 0x0c
)

func prefix(k byte) string { return string([]byte{k}) }

func paramsKey() string { return prefix(kParams) }

func memberKey(a sdk.Address) string { return prefix(kMember) + string(a.Bytes()) }

func requestKey(a sdk.Address) string { return prefix(kRequest) + string(a.Bytes()) }

func contributorKey(member, contributor sdk.Address) string {
	return prefix(kContributor) + string(member.Bytes()) + string(contributor.Bytes())
}

func scheduleKey(beneficiary, contributor sdk.Address) string {
	return prefix(kSchedule) + string(beneficiary.Bytes()) + string(contributor.Bytes())
}

func contributionsPrefix(member sdk.Address) string {
	return prefix(kContributions) + string(member.Bytes())
}
