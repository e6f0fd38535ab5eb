package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// AgeBand is the word budget and tone used for one age tier.
type AgeBand struct {
	Label    string
	MinWords int
	MaxWords int
	Tone     string
}

var (
	tierToddler = AgeBand{MinWords: 50, MaxWords: 80, Tone: "very simple sentences, gentle and reassuring, with playful repetition"}
	tierEarly   = AgeBand{MinWords: 80, MaxWords: 120, Tone: "playful and clear, short paragraphs, only light and quickly resolved peril"}
	tierMiddle  = AgeBand{MinWords: 120, MaxWords: 180, Tone: "adventurous, richer vocabulary, characters who solve problems themselves"}
	tierTeen    = AgeBand{MinWords: 180, MaxWords: 250, Tone: "immersive and emotionally nuanced, mature themes handled with care"}

	// ageTiers is ordered by the highest midpoint each tier covers.
	ageTiers = []struct {
		maxMidpoint float64
		band        AgeBand
	}{
		{6, tierToddler},
		{9, tierEarly},
		{12, tierMiddle},
	}
)

// ageBands holds the recognised age-range keys.
var ageBands = map[string]AgeBand{
	"3-5":   withLabel(tierToddler, "3-5"),
	"4-6":   withLabel(tierToddler, "4-6"),
	"7-9":   withLabel(tierEarly, "7-9"),
	"10-12": withLabel(tierMiddle, "10-12"),
	"13+":   withLabel(tierTeen, "13+"),
	"13-17": withLabel(tierTeen, "13+"),
}

var (
	rangePattern  = regexp.MustCompile(`^(\d{1,2})\s*-\s*(\d{1,2})$`)
	singlePattern = regexp.MustCompile(`^(\d{1,2})$`)
	plusPattern   = regexp.MustCompile(`^(\d{1,2})\s*\+$`)
)

func withLabel(b AgeBand, ages string) AgeBand {
	b.Label = fmt.Sprintf("Ages %s (%d-%d words)", ages, b.MinWords, b.MaxWords)
	return b
}

// LookupAgeBand returns the band for ageRange. Unknown ranges are placed in a
// tier by their numeric midpoint; input that has no numbers at all lands in
// the 7-9 tier.
func LookupAgeBand(ageRange string) AgeBand {
	key := NormalizeAgeRange(ageRange)
	if band, ok := ageBands[key]; ok {
		return band
	}

	band := tierEarly
	if mid, ok := ageMidpoint(key); ok {
		band = tierForMidpoint(mid)
	}
	display := key
	if display == "" {
		display = "7-9"
	}
	return withLabel(band, display)
}

// GenerateAgeGroupLabel returns e.g. "Ages 7-9 (80-120 words)".
func GenerateAgeGroupLabel(ageRange string) string {
	return LookupAgeBand(ageRange).Label
}

// NormalizeAgeRange trims the input and unifies dashes and spacing.
func NormalizeAgeRange(ageRange string) string {
	s := strings.TrimSpace(ageRange)
	s = strings.NewReplacer("–", "-", "—", "-", " ", "").Replace(s)
	return s
}

// ValidateTargetAge accepts "N", "N-M" and "N+" with 2 <= N <= M <= 18.
func ValidateTargetAge(ageRange string) (string, error) {
	s := NormalizeAgeRange(ageRange)
	inRange := func(n int) bool { return n >= 2 && n <= 18 }

	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if !inRange(lo) || !inRange(hi) || lo > hi {
			return "", fmt.Errorf("target_age range %q must satisfy 2 <= start <= end <= 18", ageRange)
		}
		return fmt.Sprintf("%d-%d", lo, hi), nil
	}
	if m := plusPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if !inRange(n) {
			return "", fmt.Errorf("target_age %q must be between 2 and 18", ageRange)
		}
		return fmt.Sprintf("%d+", n), nil
	}
	if m := singlePattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if !inRange(n) {
			return "", fmt.Errorf("target_age %q must be between 2 and 18", ageRange)
		}
		return strconv.Itoa(n), nil
	}
	return "", fmt.Errorf("target_age %q must look like \"7\", \"7-9\" or \"13+\"", ageRange)
}

func ageMidpoint(s string) (float64, bool) {
	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return float64(lo+hi) / 2, true
	}
	if m := plusPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n), true
	}
	if m := singlePattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n), true
	}
	return 0, false
}

func tierForMidpoint(mid float64) AgeBand {
	for _, tier := range ageTiers {
		if mid <= tier.maxMidpoint {
			return tier.band
		}
	}
	return tierTeen
}
