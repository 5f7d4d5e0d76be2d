package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled(t *testing.T) {
	t.Parallel()

	m := NewManager("signup_disabled=on, cleanup_sync=off, rollout=50%, weird=banana, =x, nokey")

	tests := []struct {
		name   string
		flag   string
		userID uint
		want   bool
	}{
		{name: "on flag", flag: "signup_disabled", userID: 0, want: true},
		{name: "on flag case-insensitive lookup", flag: "SIGNUP_DISABLED", userID: 0, want: true},
		{name: "off flag", flag: "cleanup_sync", userID: 1, want: false},
		{name: "unknown flag", flag: "does_not_exist", userID: 1, want: false},
		{name: "percentage anonymous", flag: "rollout", userID: 0, want: false},
		{name: "unparseable value", flag: "weird", userID: 1, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, m.Enabled(tc.flag, tc.userID))
		})
	}
}

func TestEnabledPercentageIsDeterministic(t *testing.T) {
	t.Parallel()

	m := NewManager("rollout=50%")
	for userID := uint(1); userID <= 20; userID++ {
		first := m.Enabled("rollout", userID)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, m.Enabled("rollout", userID), "user %d flapped", userID)
		}
	}
}

func TestEnabledPercentageBounds(t *testing.T) {
	t.Parallel()

	all := NewManager("f=100%")
	none := NewManager("f=0%")
	for userID := uint(1); userID <= 10; userID++ {
		assert.True(t, all.Enabled("f", userID))
		assert.False(t, none.Enabled("f", userID))
	}
}

func TestNilManager(t *testing.T) {
	t.Parallel()

	var m *Manager
	assert.False(t, m.Enabled("anything", 1))
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	m := NewManager("a=on,b=off")
	snap := m.Snapshot(1)
	assert.Equal(t, map[string]bool{"a": true, "b": false}, snap)
}
