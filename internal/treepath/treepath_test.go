package treepath

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStep(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		step    int
		wantErr bool
	}{
		{name: "first step", step: 1, want: "0001"},
		{name: "base-36 rollover", step: 36, want: "0010"},
		{name: "mixed digits", step: 37, want: "0011"},
		{name: "letters", step: 35, want: "000Z"},
		{name: "max step", step: MaxStep, want: "ZZZZ"},
		{name: "zero rejected", step: 0, wantErr: true},
		{name: "negative rejected", step: -1, wantErr: true},
		{name: "overflow rejected", step: MaxStep + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeStep(tt.step)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeStepCapacityError(t *testing.T) {
	_, err := EncodeStep(MaxStep + 1)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestDecodeStepRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 35, 36, 37, 1000, MaxStep} {
		code, err := EncodeStep(n)
		require.NoError(t, err)

		got, err := DecodeStep(code)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestDecodeStepRejectsGarbage(t *testing.T) {
	for _, code := range []string{"", "001", "00001", "00a1", "00!1"} {
		_, err := DecodeStep(code)
		assert.Error(t, err, "code %q", code)
	}
}

func TestLexicographicOrderMatchesNumericOrder(t *testing.T) {
	steps := []int{1, 9, 10, 35, 36, 37, 100, 1295, 1296, MaxStep}

	codes := make([]string, len(steps))
	for i, n := range steps {
		code, err := EncodeStep(n)
		require.NoError(t, err)
		codes[i] = code
	}

	assert.True(t, sort.StringsAreSorted(codes), "encoded steps must sort like their numeric values")
}

func TestParentChildStepOf(t *testing.T) {
	child, err := Child("0001", 2)
	require.NoError(t, err)
	assert.Equal(t, "00010002", child)

	assert.Equal(t, "0001", Parent(child))
	assert.Equal(t, "", Parent("0001"))

	step, err := StepOf(child)
	require.NoError(t, err)
	assert.Equal(t, 2, step)
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 1, Depth("0001"))
	assert.Equal(t, 3, Depth("000100020003"))
}

func TestAncestors(t *testing.T) {
	assert.Nil(t, Ancestors("0001"))
	assert.Equal(t, []string{"0001", "00010002"}, Ancestors("000100020003"))
}

func TestIsAncestor(t *testing.T) {
	assert.True(t, IsAncestor("0001", "00010002"))
	assert.True(t, IsAncestor("0001", "000100020003"))
	assert.False(t, IsAncestor("0001", "0001"))
	assert.False(t, IsAncestor("00010002", "0001"))
	assert.False(t, IsAncestor("0002", "00010002"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("0001"))
	assert.True(t, Valid("0001ZZZZ"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("001"))
	assert.False(t, Valid("00010"))
	assert.False(t, Valid("00a1"))
}
