package input

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	c, err := Prompt(strings.NewReader("2.0\n3.0\n 2 \n1.0\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, Coordinates{X: 2, Y: 3, Z: 2, W: 1}, c)

	assert.Contains(t, out.String(), "Enter x: ")
	assert.Contains(t, out.String(), "Enter w (quaternion): ")
}

func TestPromptInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"letters", "2.0\nabc\n", "y="},
		{"empty line", "\n", "x="},
		{"nan", "1\n2\nNaN\n", "z="},
		{"infinity", "1\n2\n3\n+Inf\n", "w="},
		{"eof", "1\n2\n", "z: no input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prompt(strings.NewReader(tt.input), &bytes.Buffer{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestPromptStopsAtFirstBadValue(t *testing.T) {
	var out bytes.Buffer
	_, err := Prompt(strings.NewReader("oops\n3\n2\n1\n"), &out)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.NotContains(t, out.String(), "Enter y: ")
}

func TestParse(t *testing.T) {
	c, err := Parse("2.0, 3.0, 2.0, 1.0")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{X: 2, Y: 3, Z: 2, W: 1}, c)

	c, err = Parse("-1.5,0,0,0.707")
	require.NoError(t, err)
	assert.Equal(t, -1.5, c.X)
	assert.Equal(t, 0.707, c.W)

	_, err = Parse("1,2,3")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Parse("1,2,x,4")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
