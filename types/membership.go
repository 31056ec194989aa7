package types

// MembershipStatus is the gated view of a user's standing in one channel.
type MembershipStatus uint8

const (
	// Member covers the chat platform statuses that count as present:
	// creator, administrator, member, and restricted-but-present.
	Member MembershipStatus = iota
	// NotMember covers left, kicked, and any unrecognized status.
	NotMember
	// Unknown marks a membership query that errored at the gateway. Policy
	// treats it as NotMember, but callers log the degradation.
	Unknown
)

// String implements fmt.Stringer.
func (m MembershipStatus) String() string {
	switch m {
	case Member:
		return "member"
	case NotMember:
		return "not_member"
	case Unknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// MembershipFromChatStatus maps a raw chat-gateway member status string to
// the gated view.
func MembershipFromChatStatus(status string) MembershipStatus {
	switch status {
	case "creator", "administrator", "member", "restricted":
		return Member
	default:
		return NotMember
	}
}
