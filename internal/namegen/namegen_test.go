package namegen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var namePattern = regexp.MustCompile(`^[a-z]+-[a-z]+-\d{1,2}$`)

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Regexp(t, namePattern, Generate())
	}
}

func TestGenerateUniqueAvoidsExisting(t *testing.T) {
	existing := []string{"happy-panda-42"}

	for i := 0; i < 50; i++ {
		name := GenerateUnique(existing)
		assert.NotEqual(t, "happy-panda-42", name)
	}
}

func TestGenerateUniqueWithEmptyList(t *testing.T) {
	assert.NotEmpty(t, GenerateUnique(nil))
}
