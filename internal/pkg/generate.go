package pkg

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
)

// GenerateRoomCode - returns a short join code, ambiguous characters excluded.
func GenerateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}

	return string(buf), nil
}

// GenerateNewSessionID - returns a fresh player-session identifier.
func GenerateNewSessionID() string {
	return uuid.NewString()
}

// GenerateBotID - returns an identifier for a bot seat.
func GenerateBotID() string {
	return "bot:" + uuid.NewString()
}
