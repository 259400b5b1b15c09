package cryptopanic

import (
	"testing"

	"CoinSage/internal/domain/models"
)

func TestVotesSentiment(t *testing.T) {
	cases := []struct {
		name string
		v    votes
		want models.Sentiment
	}{
		{"no votes", votes{}, models.SentimentNeutral},
		{"positive wins", votes{Positive: 3, Negative: 1}, models.SentimentPositive},
		{"liked counts as positive", votes{Liked: 2, Negative: 1}, models.SentimentPositive},
		{"negative wins", votes{Negative: 2, Disliked: 1, Positive: 2}, models.SentimentNegative},
		{"tie is neutral", votes{Positive: 2, Disliked: 2}, models.SentimentNeutral},
		{"important alone is neutral", votes{Important: 5}, models.SentimentNeutral},
	}
	for _, tc := range cases {
		if got := tc.v.sentiment(); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestVotesImportance(t *testing.T) {
	if got := (votes{}).importance(); got != nil {
		t.Fatalf("no votes must yield nil importance, got %v", *got)
	}

	v := votes{Positive: 3, Negative: 1, Important: 4, Liked: 1, Disliked: 1}
	got := v.importance()
	if got == nil || *got != 0.4 {
		t.Fatalf("expected importance 0.4, got %v", got)
	}
}
