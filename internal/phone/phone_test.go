package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"5105935336":        "5105935336",
		"+15105935336":      "5105935336",
		"15105935336":       "5105935336",
		"+1 (510) 593-5336": "5105935336",
		"510.593.5336":      "5105935336",
		"12345":             "12345",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("(510) 593-5336"))
	assert.False(t, IsValid("593-5336"))
}

func TestE164(t *testing.T) {
	assert.Equal(t, "+15105935336", E164("5105935336"))
	assert.Equal(t, "123", E164("123"))
}
