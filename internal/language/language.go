package language

import "strings"

type entry struct {
	code    string   // Canonical lowercase code stored on records
	iso3    string   // ISO 639 3-letter form accepted on input
	alt3    string   // Alternate 3-letter form (e.g. "chi" vs "zho")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "japanese")
}

// languages lists every transcript language the training toolkit accepts.
var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"yue", "yue", "", "Cantonese", []string{"cantonese"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "mandarin"}},
}

// Index maps built at init time.
var (
	byCode map[string]*entry
	byISO3 map[string]*entry
	byWord map[string]*entry
)

func init() {
	byCode = make(map[string]*entry, len(languages))
	byISO3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode[e.code] = e
		byISO3[e.iso3] = e
		if e.alt3 != "" {
			byISO3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(value string) *entry {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil
	}
	if e, ok := byCode[value]; ok {
		return e
	}
	if e, ok := byISO3[value]; ok {
		return e
	}
	if e, ok := byWord[value]; ok {
		return e
	}
	return nil
}

// Normalize converts any recognized spelling (canonical code, 3-letter code,
// or full word) to the canonical lowercase code. Returns empty string for
// unrecognized input.
func Normalize(value string) string {
	if e := lookup(value); e != nil {
		return e.code
	}
	return ""
}

// Supported reports whether the value names a transcript language the
// toolkit accepts.
func Supported(value string) bool {
	return lookup(value) != nil
}

// Codes returns the canonical codes in stable order.
func Codes() []string {
	codes := make([]string, len(languages))
	for i := range languages {
		codes[i] = languages[i].code
	}
	return codes
}

// ListCode returns the uppercase form used in transcript list files.
// Unrecognized input is passed through uppercased so list rows written from
// legacy records stay readable.
func ListCode(value string) string {
	if e := lookup(value); e != nil {
		return strings.ToUpper(e.code)
	}
	return strings.ToUpper(strings.TrimSpace(value))
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	if e := lookup(value); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(value))
}
