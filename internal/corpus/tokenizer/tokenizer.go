// Package tokenizer turns short social-media texts into normalised tokens.
// Every variant runs the same pipeline: a variant-specific primary split,
// lower-casing, a uniform re-split on non-word boundaries, then removal of
// language stopwords, custom link-fragment stopwords and one-rune tokens.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// DefaultCustomStopwords are fragments left behind by shortened links and
// HTML-escaped ampersands.
var DefaultCustomStopwords = []string{"http", "https", "co", "t", "amp"}

// Options configures a Tokenizer. A nil Stopwords uses the list for Language;
// a nil CustomStopwords uses DefaultCustomStopwords. Non-nil empty slices
// disable the corresponding filter.
type Options struct {
	Variant         Variant
	Language        string
	Stopwords       []string
	ExtraStopwords  []string
	CustomStopwords []string
	// SkipReSplit disables the uniform word-boundary re-split, which keeps
	// URLs, mentions and hashtags from the social variant intact.
	SkipReSplit bool
	// DropURLs discards URLs recognised by the social variant before the
	// re-split can break them into path fragments. It is off by default:
	// a URL is re-split like any other token and only its fragments listed
	// in CustomStopwords are removed, so "https://t.co/x123" yields "x123".
	DropURLs bool
}

// Tokenizer is safe for concurrent use once constructed.
type Tokenizer struct {
	variant     Variant
	split       splitFunc
	stopwords   map[string]struct{}
	custom      map[string]struct{}
	skipReSplit bool
	dropURLs    bool
}

// New builds a Tokenizer. Unknown variants fail with ErrUnsupportedTokenizer
// and unknown languages with ErrInvalidConfig.
func New(opts Options) (*Tokenizer, error) {
	split, err := opts.Variant.splitter()
	if err != nil {
		return nil, err
	}

	stops := opts.Stopwords
	if stops == nil {
		lang := opts.Language
		if lang == "" {
			lang = "english"
		}
		list, ok := stopwordsByLanguage[lang]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "no stopword list for language %q", lang)
		}
		stops = list
	}
	custom := opts.CustomStopwords
	if custom == nil {
		custom = DefaultCustomStopwords
	}

	return &Tokenizer{
		variant:     opts.Variant,
		split:       split,
		stopwords:   toSet(stops, opts.ExtraStopwords),
		custom:      toSet(custom),
		skipReSplit: opts.SkipReSplit,
		dropURLs:    opts.DropURLs,
	}, nil
}

func (t *Tokenizer) Variant() Variant {
	return t.variant
}

// Tokenize returns the surviving tokens of text in document order. It never
// fails; invalid UTF-8 sequences are dropped before splitting.
func (t *Tokenizer) Tokenize(text string) []string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	primary := t.split(text)

	lowered := make([]string, 0, len(primary))
	for _, tok := range primary {
		if t.dropURLs && isURL(tok) {
			continue
		}
		lowered = append(lowered, strings.ToLower(tok))
	}

	words := lowered
	if !t.skipReSplit {
		words = make([]string, 0, len(lowered))
		for _, tok := range lowered {
			words = append(words, splitWords(tok)...)
		}
	}

	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := t.stopwords[w]; ok {
			continue
		}
		if _, ok := t.custom[w]; ok {
			continue
		}
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// splitWords splits on runs of non-word characters, where word characters
// are letters, digits, combining marks and underscore.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

func toSet(lists ...[]string) map[string]struct{} {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	set := make(map[string]struct{}, n)
	for _, l := range lists {
		for _, w := range l {
			set[strings.ToLower(w)] = struct{}{}
		}
	}
	return set
}
