package usecase

import "testing"

func TestGazetteerSubstringMatch(t *testing.T) {
	g := NewStationGazetteer(nil, 0)

	station, ok := g.Lookup("이번 역은 구로역입니다.")
	if !ok {
		t.Fatal("Expected a station match")
	}
	if station != "구로" {
		t.Errorf("Expected 구로, got %s", station)
	}
}

func TestGazetteerLongestNameWins(t *testing.T) {
	g := NewStationGazetteer(nil, 0)

	station, ok := g.Lookup("이번 역은 서울대입구역입니다.")
	if !ok {
		t.Fatal("Expected a station match")
	}
	if station != "서울대입구" {
		t.Errorf("Expected 서울대입구 to win over 서울, got %s", station)
	}
}

func TestGazetteerFuzzyMatchOnTypo(t *testing.T) {
	g := NewStationGazetteer(nil, 0)

	// One syllable misrecognized; edit distance 1 over 7 runes clears the
	// similarity cutoff.
	station, ok := g.Lookup("가산디지탈단지역")
	if !ok {
		t.Fatal("Expected a fuzzy station match")
	}
	if station != "가산디지털단지" {
		t.Errorf("Expected 가산디지털단지, got %s", station)
	}
}

func TestGazetteerNoMatch(t *testing.T) {
	g := NewStationGazetteer(nil, 0)

	cases := []string{
		"",
		"   ",
		"점심은 무엇을 드셨나요",
	}
	for _, text := range cases {
		if station, ok := g.Lookup(text); ok {
			t.Errorf("Lookup(%q) unexpectedly matched %s", text, station)
		}
	}
}

func TestGazetteerCustomStations(t *testing.T) {
	g := NewStationGazetteer([]string{"판교", "정자"}, 0.6)

	if station, ok := g.Lookup("이번 역은 판교역입니다."); !ok || station != "판교" {
		t.Errorf("Expected 판교, got %q ok=%v", station, ok)
	}
	if _, ok := g.Lookup("이번 역은 구로역입니다."); ok {
		t.Error("Custom list should not know built-in stations")
	}
}
