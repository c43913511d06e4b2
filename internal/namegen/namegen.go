// Package namegen generates memorable session names.
package namegen

import (
	"fmt"
	"math/rand"
)

var adjectives = []string{
	"happy", "swift", "calm", "brave", "clever", "gentle",
	"fierce", "quiet", "bold", "wise", "bright", "cool",
	"eager", "fancy", "grand", "jolly", "keen", "lucky",
	"merry", "noble", "proud", "quick", "royal", "sharp",
	"agile", "cosmic", "daring", "epic", "fresh", "golden",
	"humble", "iron", "jade", "kind", "lively", "magic",
}

var animals = []string{
	"panda", "falcon", "turtle", "tiger", "eagle", "dolphin",
	"fox", "wolf", "bear", "hawk", "lion", "owl",
	"raven", "shark", "whale", "cobra", "crane", "deer",
	"otter", "phoenix", "dragon", "koala", "lynx", "seal",
	"badger", "condor", "ferret", "gopher", "hedgehog", "impala",
	"jackal", "lemur", "moose", "narwhal", "osprey", "panther",
}

// Generate returns a random name like "happy-panda-42".
func Generate() string {
	adj := adjectives[rand.Intn(len(adjectives))]
	animal := animals[rand.Intn(len(animals))]
	return fmt.Sprintf("%s-%s-%d", adj, animal, rand.Intn(99)+1)
}

// GenerateUnique returns a name not present in existing, retrying a bounded
// number of times before falling back to an extra numeric suffix.
func GenerateUnique(existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		taken[name] = struct{}{}
	}

	const maxAttempts = 10
	for i := 0; i < maxAttempts; i++ {
		name := Generate()
		if _, ok := taken[name]; !ok {
			return name
		}
	}

	return fmt.Sprintf("%s-%d", Generate(), rand.Intn(900)+100)
}
