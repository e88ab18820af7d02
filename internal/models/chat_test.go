package models

import "testing"

func TestChatPairKey(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"alice", "bob", "alice:bob"},
		{"bob", "alice", "alice:bob"},
		{"1", "2", "1:2"},
		{"2", "1", "1:2"},
	}

	for _, tt := range tests {
		if got := ChatPairKey(tt.a, tt.b); got != tt.want {
			t.Errorf("ChatPairKey(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestChatPairKeySymmetric(t *testing.T) {
	ids := []string{"u-1", "s-9", "a", "zzz"}
	for _, a := range ids {
		for _, b := range ids {
			if ChatPairKey(a, b) != ChatPairKey(b, a) {
				t.Errorf("ChatPairKey(%q, %q) not symmetric", a, b)
			}
		}
	}
}
