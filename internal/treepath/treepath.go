// Package treepath encodes tree positions as materialized path strings.
//
// A path is the concatenation of fixed-width base-36 step codes, one per
// ancestor level, root to self. Zero-padding keeps lexicographic ordering of
// paths identical to numeric ordering of steps, so sorting by path yields a
// pre-order traversal and prefix matching yields ancestry.
package treepath

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCapacityExceeded is returned when a sibling group cannot take another
// step. Declared here, at the bottom of the import graph, so every package
// that encodes paths can match on it.
var ErrCapacityExceeded = errors.New("sibling capacity exceeded")

// StepLen is the fixed width of a single step code.
const StepLen = 4

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxStep is the largest sibling index a single step can encode (36^StepLen - 1).
const MaxStep = 36*36*36*36 - 1

// EncodeStep encodes a 1-based sibling index as a fixed-width step code.
func EncodeStep(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("step must be positive, got %d", n)
	}
	if n > MaxStep {
		return "", fmt.Errorf("%w: step %d exceeds %d", ErrCapacityExceeded, n, MaxStep)
	}

	buf := [StepLen]byte{'0', '0', '0', '0'}
	for i := StepLen - 1; n > 0; i-- {
		buf[i] = alphabet[n%36]
		n /= 36
	}
	return string(buf[:]), nil
}

// DecodeStep decodes a fixed-width step code back to its sibling index.
func DecodeStep(code string) (int, error) {
	if len(code) != StepLen {
		return 0, fmt.Errorf("step code must be %d characters, got %q", StepLen, code)
	}

	n := 0
	for i := 0; i < StepLen; i++ {
		d := strings.IndexByte(alphabet, code[i])
		if d < 0 {
			return 0, fmt.Errorf("invalid character %q in step code %q", code[i], code)
		}
		n = n*36 + d
	}
	return n, nil
}

// Valid reports whether path is a well-formed materialized path.
func Valid(path string) bool {
	if path == "" || len(path)%StepLen != 0 {
		return false
	}
	for i := 0; i < len(path); i++ {
		if strings.IndexByte(alphabet, path[i]) < 0 {
			return false
		}
	}
	return true
}

// Depth returns the number of steps encoded in path. The empty path (the
// virtual root above all top-level nodes) has depth 0.
func Depth(path string) int {
	return len(path) / StepLen
}

// Parent returns the path of the node's parent: the path with its final step
// removed. Top-level nodes return the empty path.
func Parent(path string) string {
	if len(path) <= StepLen {
		return ""
	}
	return path[:len(path)-StepLen]
}

// Child returns the path of the parent's child at the given 1-based step.
func Child(parent string, step int) (string, error) {
	code, err := EncodeStep(step)
	if err != nil {
		return "", err
	}
	return parent + code, nil
}

// StepOf returns the node's 1-based index among its siblings, decoded from
// the final step of its path.
func StepOf(path string) (int, error) {
	if len(path) < StepLen {
		return 0, fmt.Errorf("path %q too short", path)
	}
	return DecodeStep(path[len(path)-StepLen:])
}

// Ancestors returns the paths of every proper ancestor, root first.
func Ancestors(path string) []string {
	n := Depth(path)
	if n <= 1 {
		return nil
	}
	out := make([]string, 0, n-1)
	for i := StepLen; i < len(path); i += StepLen {
		out = append(out, path[:i])
	}
	return out
}

// IsAncestor reports whether a is a proper ancestor of b.
func IsAncestor(a, b string) bool {
	return len(a) < len(b) && strings.HasPrefix(b, a)
}
