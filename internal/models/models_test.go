package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusVerified, true},
		{StatusPending, StatusPending, false},
		{StatusPaid, StatusPending, false},
		{StatusVerified, StatusPending, false},
		{StatusVerified, StatusPaid, false},
		{StatusPaid, StatusVerified, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestMethod_Flags(t *testing.T) {
	assert.True(t, MethodBank.RequiresProof())
	assert.True(t, MethodTransfer.RequiresProof())
	assert.False(t, MethodCash.RequiresProof())
	assert.True(t, MethodCash.Manual())
	assert.False(t, MethodOnline.Manual())
	assert.False(t, Method("crypto").Valid())
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("membership")
	assert.True(t, ok)
	assert.Equal(t, "memberships", k.Table())

	_, ok = ParseKind("users")
	assert.False(t, ok)
	assert.Empty(t, Kind("users").Table())
}
