// Package protocol defines the league.v2 message family: the envelope
// every message rides in, every payload shape spec.md §4.2 names, the
// default deadlines, and the JSON-RPC 2.0 error code namespace.
package protocol

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolName is the fixed "protocol" field every league.v2 envelope
// carries.
const ProtocolName = "league.v2"

// MessageType enumerates every league.v2 message_type.
type MessageType string

const (
	MessageTypePlayerRegisterRequest   MessageType = "player.register.request"
	MessageTypePlayerRegisterResponse  MessageType = "player.register.response"
	MessageTypeRefereeRegisterRequest  MessageType = "referee.register.request"
	MessageTypeRefereeRegisterResponse MessageType = "referee.register.response"

	MessageTypeMatchAssign MessageType = "match.assign"
	MessageTypeMatchAck    MessageType = "match.ack"

	MessageTypeGameInvite        MessageType = "game.invite"
	MessageTypeGameInviteAck     MessageType = "game.invite.ack"
	MessageTypeChooseMoveCall    MessageType = "choose_move.call"
	MessageTypeChooseMoveResp    MessageType = "choose_move.response"
	MessageTypeRoundResult       MessageType = "round_result"
	MessageTypeGameOver          MessageType = "game.over"

	MessageTypeMatchResultReport MessageType = "match_result.report"
	MessageTypeMatchResultAck    MessageType = "match_result.ack"

	MessageTypeRoundAnnounce   MessageType = "round.announce"
	MessageTypeStandingsUpdate MessageType = "standings.update"
	MessageTypeLeagueCompleted MessageType = "league.completed"

	MessageTypeStandingsGet MessageType = "standings.get"
	MessageTypeScheduleGet  MessageType = "schedule.get"
	MessageTypeLeagueStatus MessageType = "league.status"
)

// Default deadlines per spec.md §4.2.
const (
	DeadlineRegistration   = 10 * time.Second
	DeadlineInviteAck      = 5 * time.Second
	DeadlineMoveResponse   = 30 * time.Second
	DeadlineGameOver       = 5 * time.Second
	DeadlineResultReport   = 10 * time.Second
	DeadlineMatchAssign    = 10 * time.Second
	MoveCancellationWindow = 250 * time.Millisecond
	MoveResponseGrace      = 500 * time.Millisecond
)

// Envelope wraps every league.v2 payload. Sender is the opaque
// PlayerID/RefereeID/"league-manager" identifying who sent the message;
// ConversationID is chosen by the initiator and must round-trip
// unchanged in any response.
type Envelope struct {
	Protocol       string      `json:"protocol" validate:"required,eq=league.v2"`
	MessageType    MessageType `json:"message_type" validate:"required"`
	LeagueID       string      `json:"league_id" validate:"required"`
	ConversationID string      `json:"conversation_id" validate:"required"`
	Sender         string      `json:"sender" validate:"required"`
	Timestamp      time.Time   `json:"timestamp" validate:"required"`
	Payload        any         `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh conversation ID, stamping
// the current time in UTC as RFC3339 requires.
func NewEnvelope(leagueID, sender string, messageType MessageType, payload any) Envelope {
	return Envelope{
		Protocol:       ProtocolName,
		MessageType:    messageType,
		LeagueID:       leagueID,
		ConversationID: uuid.NewString(),
		Sender:         sender,
		Timestamp:      time.Now().UTC(),
		Payload:        payload,
	}
}

// Reply builds a response envelope that echoes the request's
// ConversationID and LeagueID, as spec.md §3.1 requires.
func (e Envelope) Reply(sender string, messageType MessageType, payload any) Envelope {
	return Envelope{
		Protocol:       ProtocolName,
		MessageType:    messageType,
		LeagueID:       e.LeagueID,
		ConversationID: e.ConversationID,
		Sender:         sender,
		Timestamp:      time.Now().UTC(),
		Payload:        payload,
	}
}
