package protocol

import "time"

// Role is a game-round participant tag assigned by the Referee at match
// start: side A is ODD, side B is EVEN by the parity reference game's
// convention, but the core keeps the tag opaque beyond that.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// RegistrationStatus is the outcome of a player.register or
// referee.register call.
type RegistrationStatus string

const (
	RegistrationAccepted RegistrationStatus = "ACCEPTED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// GameOverStatus is the terminal per-player outcome carried in
// game.over.
type GameOverStatus string

const (
	GameOverWin     GameOverStatus = "WIN"
	GameOverLoss    GameOverStatus = "LOSS"
	GameOverDraw    GameOverStatus = "DRAW"
	GameOverForfeit GameOverStatus = "FORFEIT"
)

// PlayerRegisterRequest is the player.register.request payload.
type PlayerRegisterRequest struct {
	DisplayName       string   `json:"display_name" validate:"required"`
	Version           string   `json:"version" validate:"required"`
	SupportedGameTypes []string `json:"supported_game_types" validate:"required,min=1"`
	ContactEndpoint   string   `json:"contact_endpoint" validate:"required,url"`
}

// PlayerRegisterResponse is the player.register.response payload.
type PlayerRegisterResponse struct {
	Status    RegistrationStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
	PlayerID  string             `json:"player_id"`
	AuthToken string             `json:"auth_token"`
	Reason    string             `json:"reason,omitempty"`
}

// RefereeRegisterRequest is the referee.register.request payload.
type RefereeRegisterRequest struct {
	DisplayName        string   `json:"display_name" validate:"required"`
	Version            string   `json:"version" validate:"required"`
	SupportedGameTypes []string `json:"supported_game_types" validate:"required,min=1"`
	ContactEndpoint    string   `json:"contact_endpoint" validate:"required,url"`
	MaxConcurrentMatches int    `json:"max_concurrent_matches" validate:"required,min=1"`
}

// RefereeRegisterResponse is the referee.register.response payload.
type RefereeRegisterResponse struct {
	Status    RegistrationStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
	RefereeID string             `json:"referee_id"`
	AuthToken string             `json:"auth_token"`
	Reason    string             `json:"reason,omitempty"`
}

// MatchAssign is the match.assign payload (League Manager -> Referee).
// The two auth tokens let the Referee derive each player's per-match
// session token (internal/platform/authtoken.DeriveSessionToken)
// without a separate lookup round-trip to the League Manager.
type MatchAssign struct {
	MatchID          string `json:"match_id" validate:"required"`
	RoundID          string `json:"round_id" validate:"required"`
	PlayerAID        string `json:"player_a_id" validate:"required"`
	PlayerAEndpoint  string `json:"player_a_endpoint" validate:"required,url"`
	PlayerAAuthToken string `json:"player_a_auth_token" validate:"required"`
	PlayerBID        string `json:"player_b_id" validate:"required"`
	PlayerBEndpoint  string `json:"player_b_endpoint" validate:"required,url"`
	PlayerBAuthToken string `json:"player_b_auth_token" validate:"required"`
	GameType         string `json:"game_type" validate:"required"`
	BestOfK          int    `json:"best_of_k" validate:"required,min=1"`
}

// MatchAck is the match.ack payload (Referee -> League Manager).
type MatchAck struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// GameInvite is the game.invite payload (Referee -> Player).
type GameInvite struct {
	MatchID         string `json:"match_id" validate:"required"`
	OpponentID      string `json:"opponent_id" validate:"required"`
	OpponentEndpoint string `json:"opponent_endpoint" validate:"required,url"`
	RoleTag         Role   `json:"role_tag" validate:"required,oneof=A B"`
	GameType        string `json:"game_type" validate:"required"`
	BestOfK         int    `json:"best_of_k" validate:"required,min=1"`
	SessionToken    string `json:"session_token" validate:"required"`
}

// GameInviteAck is the game.invite.ack payload (Player -> Referee).
type GameInviteAck struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// RunningScore tracks each side's game-round win count within a Match.
type RunningScore struct {
	A int `json:"a"`
	B int `json:"b"`
}

// ChooseMoveCall is the choose_move.call payload (Referee -> Player).
type ChooseMoveCall struct {
	MatchID         string        `json:"match_id" validate:"required"`
	GameRoundID     int           `json:"game_round_id" validate:"required,min=1"`
	RunningScore    RunningScore  `json:"running_score"`
	Deadline        time.Time     `json:"deadline" validate:"required"`
	OpponentLastMove *string      `json:"opponent_last_move,omitempty"`
}

// ChooseMoveResponse is the choose_move.response payload (Player ->
// Referee).
type ChooseMoveResponse struct {
	MatchID     string `json:"match_id" validate:"required"`
	GameRoundID int    `json:"game_round_id" validate:"required,min=1"`
	Move        string `json:"move" validate:"required"`
}

// RoundResult is the round_result payload (Referee -> Player).
type RoundResult struct {
	MatchID         string       `json:"match_id" validate:"required"`
	GameRoundID     int          `json:"game_round_id" validate:"required,min=1"`
	RoundWinnerRole *Role        `json:"round_winner_role,omitempty"`
	YourMove        string       `json:"your_move"`
	OpponentMove    string       `json:"opponent_move"`
	RunningScore    RunningScore `json:"running_score"`
}

// GameRoundRecord is one completed game-round entry in a Match or
// GameSession history.
type GameRoundRecord struct {
	GameRoundID     int    `json:"game_round_id"`
	MoveA           string `json:"move_a"`
	MoveB           string `json:"move_b"`
	RoundWinnerRole *Role  `json:"round_winner_role,omitempty"`
}

// GameOver is the game.over payload (Referee -> Player).
type GameOver struct {
	MatchID     string            `json:"match_id" validate:"required"`
	Status      GameOverStatus    `json:"status" validate:"required,oneof=WIN LOSS DRAW FORFEIT"`
	FinalScore  RunningScore      `json:"final_score"`
	History     []GameRoundRecord `json:"history"`
}

// MatchResultReport is the match_result.report payload (Referee ->
// League Manager).
type MatchResultReport struct {
	MatchID        string            `json:"match_id" validate:"required"`
	RoundID        string            `json:"round_id" validate:"required"`
	WinnerID       *string           `json:"winner_id,omitempty"`
	ScoreA         int               `json:"score_a"`
	ScoreB         int               `json:"score_b"`
	History        []GameRoundRecord `json:"history"`
	ForfeitReason  string            `json:"forfeit_reason,omitempty"`
}

// MatchResultAck is the match_result.ack payload (League Manager ->
// Referee).
type MatchResultAck struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
}

// ScheduledMatchSummary is one Match entry inside a round.announce or
// schedule.get response.
type ScheduledMatchSummary struct {
	MatchID   string `json:"match_id"`
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`
	GameType  string `json:"game_type"`
	IsBye     bool   `json:"is_bye"`
}

// RoundAnnounce is the round.announce broadcast payload.
type RoundAnnounce struct {
	RoundID string                  `json:"round_id" validate:"required"`
	Matches []ScheduledMatchSummary `json:"matches"`
}

// StandingRow is one ranked entry in a standings.update or
// standings.get response.
type StandingRow struct {
	PlayerID string `json:"player_id"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
}

// StandingsUpdate is the standings.update broadcast payload.
type StandingsUpdate struct {
	Standings []StandingRow `json:"standings"`
	RoundID   string        `json:"round_id"`
}

// LeagueCompleted is the league.completed broadcast payload.
type LeagueCompleted struct {
	ChampionID     *string       `json:"champion_id,omitempty"`
	FinalStandings []StandingRow `json:"final_standings"`
}

// StandingsGetRequest is the standings.get query payload (no fields:
// every field beyond the envelope is implied by the caller's identity).
type StandingsGetRequest struct{}

// ScheduleGetRequest is the schedule.get query payload.
type ScheduleGetRequest struct{}

// LeagueStatusRequest is the league.status query payload.
type LeagueStatusRequest struct{}

// ScheduleGetResponse mirrors the full Schedule for a read-only query.
type ScheduleGetResponse struct {
	Rounds []RoundSummary `json:"rounds"`
}

// RoundSummary is one Round's worth of ScheduledMatchSummary entries,
// used by both round.announce (single round) and schedule.get (all
// rounds).
type RoundSummary struct {
	RoundID string                  `json:"round_id"`
	Matches []ScheduledMatchSummary `json:"matches"`
}

// LeagueStatusResponse answers league.status.
type LeagueStatusResponse struct {
	State           string `json:"state"`
	CurrentRoundID  string `json:"current_round_id,omitempty"`
	PlayersRegistered int  `json:"players_registered"`
	RefereesRegistered int `json:"referees_registered"`
}
