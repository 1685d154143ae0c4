package usecase

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// StationGazetteer finds the station name a piece of recognized text refers
// to, if any. Encapsulating the lookup keeps the matching strategy swappable
// without touching the segmenter.
type StationGazetteer interface {
	Lookup(text string) (string, bool)
}

// DefaultStationSimilarityCutoff is the edit-distance similarity a fuzzy
// match must clear. Tunable through config.
const DefaultStationSimilarityCutoff = 0.6

// line 1/2 stations around the recorded corridor. The list is static and
// scanned linearly, which is fine at this size.
var defaultStations = []string{
	"서울", "시청", "종각", "종로3가", "종로5가", "동대문", "신설동", "제기동", "청량리",
	"남영", "용산", "노량진", "대방", "신길", "영등포", "신도림", "구로", "가산디지털단지",
	"을지로입구", "을지로3가", "을지로4가", "동대문역사문화공원", "신당", "왕십리", "한양대",
	"뚝섬", "성수", "건대입구", "구의", "강변", "잠실", "삼성", "선릉", "역삼", "강남",
	"교대", "서초", "방배", "사당", "낙성대", "서울대입구", "봉천", "신림", "신대방",
	"대림", "문래", "당산", "합정", "홍대입구", "신촌", "이대", "충정로",
}

type staticGazetteer struct {
	stations []string
	cutoff   float64
}

// NewStationGazetteer builds a gazetteer over the given station list. A nil
// or empty list falls back to the built-in one.
func NewStationGazetteer(stations []string, cutoff float64) StationGazetteer {
	if len(stations) == 0 {
		stations = defaultStations
	}
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultStationSimilarityCutoff
	}
	return &staticGazetteer{stations: stations, cutoff: cutoff}
}

// Lookup tries exact substring containment of a station name inside the text
// first, then falls back to edit-distance similarity for recognition typos
// like "구도역" for "구로역". The longest contained name wins so "서울대입구"
// is not shadowed by "서울".
func (g *staticGazetteer) Lookup(text string) (string, bool) {
	compact := strings.ToLower(strings.Join(strings.Fields(text), ""))
	if compact == "" {
		return "", false
	}

	var best string
	for _, station := range g.stations {
		if strings.Contains(compact, strings.ToLower(station)) && len(station) > len(best) {
			best = station
		}
	}
	if best != "" {
		return best, true
	}

	// Fuzzy matching only makes sense against a short, station-shaped
	// fragment, not a whole sentence.
	candidate := strings.TrimSuffix(compact, "역")
	if len([]rune(candidate)) > 10 {
		return "", false
	}

	bestScore := 0.0
	for _, station := range g.stations {
		score := similarity(candidate, strings.ToLower(station))
		if score >= g.cutoff && score > bestScore {
			best = station
			bestScore = score
		}
	}
	if best != "" {
		return best, true
	}
	return "", false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
