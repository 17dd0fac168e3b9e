package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
)

func TestFriendlyMessage(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "auth kind",
			err:  provider.NewError(provider.ErrKindAuth, "401 unauthorized", nil),
			want: "issue with the API key",
		},
		{
			name: "invalid key by keyword",
			err:  errors.New("invalid api key provided"),
			want: "issue with the API key",
		},
		{
			name: "rate limit",
			err:  errors.New("429 too many requests"),
			want: "temporarily busy",
		},
		{
			name: "network",
			err:  errors.New("connection refused"),
			want: "check your network connection",
		},
		{
			name: "quota",
			err:  errors.New("quota exceeded for this billing period"),
			want: "quota may have been exceeded",
		},
		{
			name: "cancelled",
			err:  provider.NewError(provider.ErrKindCancelled, "Cancelled", nil),
			want: "Cancelled.",
		},
		{
			name: "generic",
			err:  errors.New("stream parse failed at byte 17"),
			want: "Sorry, I ran into an issue",
		},
	}
	for _, tc := range cases {
		got := FriendlyMessage(tc.err)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("%s: FriendlyMessage() = %q, want substring %q", tc.name, got, tc.want)
		}
	}
}

func TestFriendlyMessagePreservesDetails(t *testing.T) {
	t.Parallel()
	got := FriendlyMessage(errors.New("connection reset by peer"))
	if !strings.Contains(got, "connection reset by peer") {
		t.Fatalf("raw error text missing from %q", got)
	}
}

func TestFriendlyMessageNil(t *testing.T) {
	t.Parallel()
	if got := FriendlyMessage(nil); got != "" {
		t.Fatalf("FriendlyMessage(nil) = %q, want empty", got)
	}
}
