package deeplink_test

import (
	"testing"

	"telegram-archivebot/internal/deeplink"
)

func TestMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		channelID int64
		messageID int
		want      string
	}{
		{
			name:      "supergroupPrefixStripped",
			channelID: -1001234567890,
			messageID: 42,
			want:      "https://t.me/c/1234567890/42",
		},
		{
			name:      "plainNegativeID",
			channelID: -987654,
			messageID: 7,
			want:      "https://t.me/c/987654/7",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := deeplink.Message(tc.channelID, tc.messageID); got != tc.want {
				t.Fatalf("Message() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRange(t *testing.T) {
	t.Parallel()

	got := deeplink.Range(-1001234567890, 100, 105)
	want := "https://t.me/c/1234567890/100-105"
	if got != want {
		t.Fatalf("Range() = %q, want %q", got, want)
	}
}
