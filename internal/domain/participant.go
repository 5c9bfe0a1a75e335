package domain

type ParticipantID string

// Participant is the platform's view of a member. Bot marks automated
// accounts, which never count toward vote quorums.
type Participant struct {
	ID       ParticipantID `json:"id"`
	Username string        `json:"username"`
	Bot      bool          `json:"bot"`
}
