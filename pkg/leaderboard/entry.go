package leaderboard

import (
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// APIPath is the route serving both submission and retrieval
	APIPath = "/api/leaderboard"

	// MinNameLength and MaxNameLength bound an accepted nickname, in UTF-16 code units
	MinNameLength = 3
	MaxNameLength = 24

	// DefaultLimit is the size of the leaderboard returned to clients
	DefaultLimit = 10
)

// Entry is one leaderboard record. Entries are append-only.
type Entry struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Score Score              `bson:"score" json:"score"`
}

// ValidName reports whether name may be stored on the leaderboard
func ValidName(name string) bool {
	n := NameLength(name)
	return n >= MinNameLength && n <= MaxNameLength
}

// NameLength counts UTF-16 code units, which is how browsers measure input length.
func NameLength(name string) int {
	n := 0
	for _, r := range name {
		if r >= 0x10000 && r <= utf8.MaxRune {
			n += 2
		} else {
			n++
		}
	}
	return n
}
