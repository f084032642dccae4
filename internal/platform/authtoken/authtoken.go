// Package authtoken mints the League Manager's registration AuthTokens
// and derives the per-match session tokens a Referee hands to the two
// Players it invites — the "HMAC-style session tokens" spec.md §3.1 and
// the PURPOSE section's non-goals list refer to.
package authtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Mint returns a high-entropy opaque token, sized by nBytes of randomness
// (spec.md LEAGUE_AUTH_TOKEN_BYTES, default 32).
func Mint(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// DeriveSessionToken derives a per-match token bound to one player's
// registration auth token and the match it was invited into, via
// HKDF-SHA256 (an HMAC-based KDF). Two players in the same match get
// distinct tokens because each derivation is additionally salted with
// the player's own ID; the match ID is the derivation "info" so tokens
// for the same player across different matches never collide.
func DeriveSessionToken(playerAuthToken, playerID, matchID string) (string, error) {
	if playerAuthToken == "" {
		return "", fmt.Errorf("player auth token is required")
	}
	if matchID == "" {
		return "", fmt.Errorf("match id is required")
	}

	salt := []byte(playerID)
	info := []byte("league.v2/session/" + matchID)

	reader := hkdf.New(sha256.New, []byte(playerAuthToken), salt, info)
	out := make([]byte, 24)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", fmt.Errorf("derive session token: %w", err)
	}
	return hex.EncodeToString(out), nil
}
