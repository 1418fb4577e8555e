package deck

import (
	"encoding/json"
	"testing"
)

func TestCardMatches(t *testing.T) {
	t.Parallel()
	top := NewCard(Hearts, Seven)

	if !NewCard(Hearts, King).Matches(top) {
		t.Error("same suit should match")
	}
	if !NewCard(Spades, Seven).Matches(top) {
		t.Error("same rank should match")
	}
	if !NewCard(Hearts, Seven).Matches(top) {
		t.Error("identical card should match")
	}
	if NewCard(Clubs, Two).Matches(top) {
		t.Error("different suit and rank should not match")
	}
}

func TestCardString(t *testing.T) {
	t.Parallel()
	cases := []struct {
		card Card
		want string
	}{
		{NewCard(Spades, Ace), "A♠"},
		{NewCard(Hearts, Ten), "10♥"},
		{NewCard(Diamonds, Queen), "Q♦"},
		{NewCard(Clubs, Two), "2♣"},
	}
	for _, tc := range cases {
		if got := tc.card.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestCardIsRed(t *testing.T) {
	t.Parallel()
	if !NewCard(Hearts, Ace).IsRed() || !NewCard(Diamonds, Ace).IsRed() {
		t.Error("hearts and diamonds are red")
	}
	if NewCard(Clubs, Ace).IsRed() || NewCard(Spades, Ace).IsRed() {
		t.Error("clubs and spades are black")
	}
}

func TestCardJSON(t *testing.T) {
	t.Parallel()
	card := NewCard(Diamonds, Ten)

	data, err := json.Marshal(card)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"suit":"Diamonds","rank":"10"}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	var decoded Card
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != card {
		t.Errorf("round trip changed card: %v != %v", decoded, card)
	}
}

func TestCardJSONInvalid(t *testing.T) {
	t.Parallel()
	var card Card
	if err := json.Unmarshal([]byte(`{"suit":"Coins","rank":"7"}`), &card); err == nil {
		t.Error("unknown suit should fail to decode")
	}
	if err := json.Unmarshal([]byte(`{"suit":"Hearts","rank":"11"}`), &card); err == nil {
		t.Error("unknown rank should fail to decode")
	}
}

func TestParseSuit(t *testing.T) {
	t.Parallel()
	suit, err := ParseSuit("Spades")
	if err != nil || suit != Spades {
		t.Errorf("ParseSuit(Spades) = %v, %v", suit, err)
	}
	if _, err := ParseSuit("spades"); err == nil {
		t.Error("suit names are case sensitive")
	}
}

func TestParseRank(t *testing.T) {
	t.Parallel()
	for rank := Ace; rank <= King; rank++ {
		parsed, err := ParseRank(rank.String())
		if err != nil {
			t.Fatalf("ParseRank(%s) failed: %v", rank, err)
		}
		if parsed != rank {
			t.Errorf("ParseRank(%s) = %v, want %v", rank, parsed, rank)
		}
	}
	if _, err := ParseRank("0"); err == nil {
		t.Error("rank 0 should not parse")
	}
}
