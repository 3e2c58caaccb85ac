// Package api provides the HTTP client for the Rift Augur matchmaking server.
package api

// MatchNotification is pushed on the event stream when the server forms a match.
type MatchNotification struct {
	MatchID string   `json:"match_id"`
	TeamA   []string `json:"team_a"`
	TeamB   []string `json:"team_b"`
}

// Teams returns the two rosters in reported order.
func (m MatchNotification) Teams() (a, b []string) {
	return m.TeamA, m.TeamB
}

// QueueEntry is one waiting player as returned by GET /queue/players.
type QueueEntry struct {
	PlayerID string `json:"player_id"`
	MMR      int    `json:"mmr"`
}

// RecentMatch is a completed match from GET /matches/recent.
type RecentMatch struct {
	MatchID    string   `json:"match_id"`
	WinnerTeam []string `json:"winner_team"`
	LoserTeam  []string `json:"loser_team"`
	Timestamp  string   `json:"timestamp"`
}

// MatchResult is the body of POST /matches/{id}/results.
type MatchResult struct {
	WinnerTeam []string `json:"winner_team"`
	LoserTeam  []string `json:"loser_team"`
}

// JoinRequest is the body of POST /queue. A nil MMR lets the server
// apply its default.
type JoinRequest struct {
	PlayerID string `json:"player_id"`
	MMR      *int   `json:"mmr,omitempty"`
}

// DefaultMMR is the rating the server assigns when a join omits one.
const DefaultMMR = 1000

// Player is a player profile.
type Player struct {
	PlayerID             string   `json:"player_id"`
	Rank                 string   `json:"rank,omitempty"`
	MMR                  int      `json:"mmr,omitempty"`
	Wins                 int      `json:"wins"`
	Losses               int      `json:"losses"`
	CharacterPreferences []string `json:"character_preferences,omitempty"`
}

// PlayerRequest is the body of POST and PUT /players.
type PlayerRequest struct {
	PlayerID string `json:"player_id"`
	Rank     string `json:"rank"`
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	TeamA []string `json:"team_a"`
	TeamB []string `json:"team_b"`
}

// Prediction is the predictor's answer.
type Prediction struct {
	TeamAWinProb float64 `json:"team_a_win_prob"`
	TeamBWinProb float64 `json:"team_b_win_prob"`
}

// statusResponse covers the {"status": ...} acknowledgements.
type statusResponse struct {
	Status string `json:"status"`
}
