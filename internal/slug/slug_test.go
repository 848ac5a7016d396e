package slug

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"Đà Nẵng Blockchain Day", "da-nang-blockchain-day"},
		{"Hội thảo Web3 & DeFi", "hoi-thao-web3-defi"},
		{"  --Trim  me--  ", "trim-me"},
		{"Café 2025!", "cafe-2025"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Make(tt.in); got != tt.want {
			t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMake_TruncatesLongTitles(t *testing.T) {
	got := Make(strings.Repeat("a ", 300))
	if len(got) > MaxLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("末尾がハイフン: %q", got)
	}
}

func TestUnique(t *testing.T) {
	used := map[string]bool{"launch": true, "launch-2": true}
	exists := func(ctx context.Context, s string) (bool, error) { return used[s], nil }

	got, err := Unique(context.Background(), "launch", "event", exists)
	if err != nil || got != "launch-3" {
		t.Errorf("Unique = (%q, %v), want launch-3", got, err)
	}

	got, err = Unique(context.Background(), "", "event", exists)
	if err != nil || got != "event" {
		t.Errorf("空のbaseはfallbackを使うべき: (%q, %v)", got, err)
	}
}

func TestUnique_PropagatesError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Unique(context.Background(), "x", "y", func(ctx context.Context, s string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}
