// Package input reads the four goal coordinates from an interactive terminal
// or from a single comma separated argument.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInput is returned when a coordinate is not a finite number.
var ErrInvalidInput = errors.New("coordinates must be floating point numbers")

// Example is the hint shown next to ErrInvalidInput.
const Example = "2.0, 3.0, 2.0, 1.0"

// Coordinates are the raw values entered by the operator.
type Coordinates struct {
	X, Y, Z, W float64
}

var prompts = [4]string{
	"Enter x: ",
	"Enter y: ",
	"Enter z: ",
	"Enter w (quaternion): ",
}

// Prompt asks for x, y, z and w one line at a time. Prompts go to out.
// It stops at the first value that does not parse.
func Prompt(in io.Reader, out io.Writer) (Coordinates, error) {
	fmt.Fprintln(out, "Please enter the goal pose:")

	scanner := bufio.NewScanner(in)
	var vals [4]float64
	for i, p := range prompts {
		fmt.Fprint(out, p)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return Coordinates{}, fmt.Errorf("read %s: %w", fieldName(i), err)
			}
			return Coordinates{}, fmt.Errorf("%w: %s: no input", ErrInvalidInput, fieldName(i))
		}
		v, err := parseValue(fieldName(i), scanner.Text())
		if err != nil {
			return Coordinates{}, err
		}
		vals[i] = v
	}

	return Coordinates{X: vals[0], Y: vals[1], Z: vals[2], W: vals[3]}, nil
}

// Parse reads "x,y,z,w" as given to --pose.
func Parse(s string) (Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Coordinates{}, fmt.Errorf("%w: expected 4 comma separated values, got %d", ErrInvalidInput, len(parts))
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := parseValue(fieldName(i), p)
		if err != nil {
			return Coordinates{}, err
		}
		vals[i] = v
	}
	return Coordinates{X: vals[0], Y: vals[1], Z: vals[2], W: vals[3]}, nil
}

func parseValue(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidInput, field, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%q is not finite", ErrInvalidInput, field, s)
	}
	return v, nil
}

func fieldName(i int) string {
	return [4]string{"x", "y", "z", "w"}[i]
}
