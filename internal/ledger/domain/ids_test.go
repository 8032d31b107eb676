package domain

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidateMatchID(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"m1", true},
		{"MATCH_001-final", true},
		{strings.Repeat("a", 32), true},
		{"", false},
		{strings.Repeat("a", 33), false},
		{"has space", false},
		{"acento-é", false},
		{"semi;colon", false},
	}
	for _, tt := range tests {
		err := ValidateMatchID(tt.id)
		if tt.ok && err != nil {
			t.Errorf("ValidateMatchID(%q) unexpected error: %v", tt.id, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ValidateMatchID(%q) = %v, want invalid argument", tt.id, err)
		}
	}
}

func TestValidateTeamName(t *testing.T) {
	if err := ValidateTeamName("team1", "São Paulo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 64 runes multibyte ainda é válido
	if err := ValidateTeamName("team1", strings.Repeat("ã", 64)); err != nil {
		t.Fatalf("unexpected error for 64 runes: %v", err)
	}
	for _, bad := range []string{"", strings.Repeat("x", 65), string([]byte{0xff, 0xfe})} {
		if err := ValidateTeamName("team2", bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ValidateTeamName(%q) = %v, want invalid argument", bad, err)
		}
	}
}

func TestBetKeyIsInjective(t *testing.T) {
	a := BetKey("ab", "c")
	b := BetKey("a", "bc")
	if bytes.Equal(a, b) {
		t.Fatalf("BetKey collision: %x", a)
	}
	if got := BetKey("U1", "m1"); !bytes.Equal(got, []byte("\x02U1m1")) {
		t.Fatalf("BetKey = %q", got)
	}
	long := Identity(strings.Repeat("x", MaxIdentityLen))
	if got := BetKey(long, "m1"); got[0] != MaxIdentityLen || string(got[1+MaxIdentityLen:]) != "m1" {
		t.Fatalf("BetKey(max identity) = %q", got)
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	id := Identity([]byte{0x00, 0xff, 'u'})
	back, err := ParseIdentity(id.String())
	if err != nil || back != id {
		t.Fatalf("ParseIdentity(%q) = %q, %v", id.String(), back, err)
	}
	if err := ValidateIdentity(""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty identity accepted: %v", err)
	}
}
