package domain

// AccessRuleSet is a room's entry policy: one deny rule for the general
// population and one allow rule per invited participant. Built once at
// creation time; never mutated afterward except by a vote-kick outcome,
// which the platform applies as a per-participant deny override.
type AccessRuleSet struct {
	DenyEveryone bool
	Allow        []ParticipantID
}

// NewAccessRuleSet builds the entry policy for a fresh room. The
// initiator is always included in the allow set even when absent from
// the invitee list, and duplicate ids collapse to one rule.
func NewAccessRuleSet(initiator ParticipantID, invitees []ParticipantID) AccessRuleSet {
	seen := map[ParticipantID]struct{}{initiator: {}}
	allow := []ParticipantID{initiator}
	for _, id := range invitees {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		allow = append(allow, id)
	}
	return AccessRuleSet{DenyEveryone: true, Allow: allow}
}

// Allows reports whether the rule set grants entry to the participant.
func (a AccessRuleSet) Allows(id ParticipantID) bool {
	for _, p := range a.Allow {
		if p == id {
			return true
		}
	}
	return false
}
