package core

import "fmt"

// Genre is a closed set of story genres. The values are the Persian labels
// shown to the reader and embedded verbatim in the generation prompt.
type Genre string

const (
	GenreFantasy     Genre = "خیال‌پردازی"
	GenreSciFi       Genre = "علمی تخیلی"
	GenreFable       Genre = "افسانه"
	GenreAdventure   Genre = "ماجراجویی"
	GenreBedtime     Genre = "قصه‌ی شب"
	GenreEducational Genre = "آموزشی"
)

// genreKeys maps the stable API names onto genre labels.
var genreKeys = map[string]Genre{
	"FANTASY":     GenreFantasy,
	"SCI_FI":      GenreSciFi,
	"FABLE":       GenreFable,
	"ADVENTURE":   GenreAdventure,
	"BEDTIME":     GenreBedtime,
	"EDUCATIONAL": GenreEducational,
}

// ParseGenre accepts either the API name (e.g. "FANTASY") or the Persian
// label itself.
func ParseGenre(v string) (Genre, error) {
	if g, ok := genreKeys[v]; ok {
		return g, nil
	}
	for _, g := range genreKeys {
		if string(g) == v {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown genre %q", v)
}

// Length selects the approximate story size. The word counts are a hint
// passed to the model, not an enforced bound.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// lengthHints maps each length onto the Persian word-count phrase used in
// the prompt (short ≈ 300, medium ≈ 600, long ≈ 1000 words).
var lengthHints = map[Length]string{
	LengthShort:  "حدود ۳۰۰ کلمه",
	LengthMedium: "حدود ۶۰۰ کلمه",
	LengthLong:   "حدود ۱۰۰۰ کلمه",
}

func ParseLength(v string) (Length, error) {
	l := Length(v)
	if _, ok := lengthHints[l]; !ok {
		return "", fmt.Errorf("unknown length %q", v)
	}
	return l, nil
}

// StoryOptions is one generation request. It is never persisted; the prompt
// and genre are copied into the Story record only when the result is saved.
type StoryOptions struct {
	Prompt   string
	Genre    Genre
	AgeGroup string
	Length   Length
}

// Draft is a generation result held in memory until the user saves it.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
