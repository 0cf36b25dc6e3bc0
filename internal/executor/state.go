package executor

import "strings"

// State is a position in the writer/critic state machine.
type State string

const (
	StateWriterTurn State = "WRITER_TURN"
	StateCriticTurn State = "CRITIC_TURN"
	StateDone       State = "DONE"
)

// Role returns who speaks in state s. DONE has no speaker.
func (s State) Role() Role {
	switch s {
	case StateWriterTurn:
		return RoleWriter
	case StateCriticTurn:
		return RoleCritic
	default:
		return ""
	}
}

// Step returns the state that follows current once reply has been produced
// in it. The writer always hands over to the critic; the critic ends the
// conversation only when its reply is the termination token itself.
func Step(current State, reply, token string) State {
	switch current {
	case StateWriterTurn:
		return StateCriticTurn
	case StateCriticTurn:
		if IsApproval(reply, token) {
			return StateDone
		}
		return StateWriterTurn
	default:
		return StateDone
	}
}

// IsApproval reports whether a critic reply is the termination token.
// Surrounding whitespace is ignored; anything else, including a longer
// message that mentions the token, is feedback.
func IsApproval(reply, token string) bool {
	return token != "" && strings.TrimSpace(reply) == token
}
