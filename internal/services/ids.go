package services

import (
	"fmt"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	roomIDAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomIDLength        = 6
	messageIDAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
	messageSuffixLength = 5
)

// NewRoomIDGenerator returns a generator of short, human shareable room codes.
func NewRoomIDGenerator() func() string {
	return mustGenerator(roomIDAlphabet, roomIDLength)
}

// NewMessageIDGenerator returns a generator of ids made of the unix millis of
// the supplied time followed by a random suffix.
func NewMessageIDGenerator() func(time.Time) string {
	suffix := mustGenerator(messageIDAlphabet, messageSuffixLength)
	return func(t time.Time) string {
		return fmt.Sprintf("%d%s", t.UnixMilli(), suffix())
	}
}

func mustGenerator(alphabet string, length int) func() string {
	gen, err := nanoid.CustomASCII(alphabet, length)
	if err != nil {
		panic(fmt.Sprintf("invalid id generator config: %v", err))
	}
	return gen
}
