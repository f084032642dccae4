package protocol

import (
	"testing"
	"time"
)

func TestMarshalUnmarshal_RoundTripsEnvelope(t *testing.T) {
	t.Parallel()

	original := NewEnvelope("league-1", "player-42", MessageTypeChooseMoveResp, ChooseMoveResponse{
		MatchID:     "R1M1",
		GameRoundID: 3,
		Move:        "7",
	})

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Protocol != original.Protocol ||
		decoded.MessageType != original.MessageType ||
		decoded.LeagueID != original.LeagueID ||
		decoded.ConversationID != original.ConversationID ||
		decoded.Sender != original.Sender {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Fatalf("timestamp mismatch: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
}

func TestDecodePayload_ValidatesRequiredFields(t *testing.T) {
	t.Parallel()

	var dst ChooseMoveResponse
	err := DecodePayload(map[string]any{
		"match_id":      "",
		"game_round_id": 0,
		"move":          "",
	}, &dst)
	if err == nil {
		t.Fatalf("expected validation error for empty required fields")
	}
}

func TestDecodePayload_IgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	var dst GameInviteAck
	err := DecodePayload(map[string]any{
		"accepted":     true,
		"future_field": "forward-compatible",
	}, &dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dst.Accepted {
		t.Fatalf("expected accepted=true")
	}
}

func TestReply_EchoesConversationAndLeagueID(t *testing.T) {
	t.Parallel()

	req := NewEnvelope("league-1", "referee-1", MessageTypeGameInvite, GameInvite{
		MatchID:          "R1M1",
		OpponentID:       "player-2",
		OpponentEndpoint: "http://localhost:8102",
		RoleTag:          RoleA,
		GameType:         "parity",
		BestOfK:          5,
		SessionToken:     "tok",
	})

	resp := req.Reply("player-1", MessageTypeGameInviteAck, GameInviteAck{Accepted: true})

	if resp.ConversationID != req.ConversationID {
		t.Fatalf("expected conversation id to be echoed")
	}
	if resp.LeagueID != req.LeagueID {
		t.Fatalf("expected league id to be echoed")
	}
	if resp.Timestamp.Before(req.Timestamp.Add(-time.Second)) {
		t.Fatalf("expected response timestamp to be current")
	}
}
