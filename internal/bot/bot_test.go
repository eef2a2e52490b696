package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cases := []struct {
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{"!баланс", "баланс", nil, true},
		{".кости odd 10 3", "кости", []string{"odd", "10", "3"}, true},
		{"/start@duna_casino_bot", "start", nil, true},
		{"  !БЛЭКДЖЕК 50  ", "блэкджек", []string{"50"}, true},
		{"привет", "", nil, false},
		{"!", "", nil, false},
	}
	for _, tc := range cases {
		cmd, args, ok := p.ParseCommand(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.cmd, cmd, tc.text)
		assert.Equal(t, tc.args, args, tc.text)
	}
}
