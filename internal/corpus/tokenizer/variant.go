package tokenizer

import (
	"regexp"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Variant selects the primary split applied before the shared normalisation.
type Variant int

const (
	// Generic lower-cases and splits on non-word boundaries.
	Generic Variant = iota
	// Social keeps URLs, @mentions, #hashtags and emoticons as single tokens
	// before falling back to words and punctuation runs.
	Social
	// Informal collapses case and keeps punctuation as separate one-rune
	// tokens while leaving apostrophes and hyphens inside words.
	Informal
)

var variantNames = map[Variant]string{
	Generic:  "generic",
	Social:   "social",
	Informal: "informal",
}

// ParseVariant accepts the canonical names plus the aliases used by earlier
// configurations (gensim, twokenize, tweet).
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "generic", "gensim":
		return Generic, nil
	case "social", "twokenize":
		return Social, nil
	case "informal", "tweet":
		return Informal, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrUnsupportedTokenizer, "variant %q", name)
	}
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return "unknown"
}

type splitFunc func(text string) []string

func (v Variant) splitter() (splitFunc, error) {
	switch v {
	case Generic:
		return splitGeneric, nil
	case Social:
		return splitSocial, nil
	case Informal:
		return splitInformal, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrUnsupportedTokenizer, "variant %d", int(v))
	}
}

func splitGeneric(text string) []string {
	return splitWords(strings.ToLower(text))
}

const (
	urlExpr      = `(?i:(?:https?://|www\.)[^\s<>"]+)`
	mentionExpr  = `@[\p{L}\p{N}_]+`
	hashtagExpr  = `#[\p{L}\p{N}_]+`
	emoticonExpr = `(?:[<>]?[:;=][\-o\*']?[\)\]\(\[dDpP/\\:\}\{@\|]|[\)\]\(\[/\\\}\{@\|][\-o\*']?[:;=][<>]?|<3)`
	wordExpr     = `[\p{L}\p{N}_\p{M}]+(?:['’][\p{L}\p{N}_\p{M}]+)*`
)

var (
	urlPattern      = regexp.MustCompile(`^` + urlExpr + `$`)
	socialPattern   = regexp.MustCompile(urlExpr + `|` + mentionExpr + `|` + hashtagExpr + `|` + emoticonExpr + `|` + wordExpr + `|[^\s\p{L}\p{N}_\p{M}]+`)
	informalPattern = regexp.MustCompile(`[\p{L}\p{N}_\p{M}]+(?:['’\-][\p{L}\p{N}_\p{M}]+)*|[^\s\p{L}\p{N}_\p{M}]`)
)

func splitSocial(text string) []string {
	return socialPattern.FindAllString(text, -1)
}

func splitInformal(text string) []string {
	return informalPattern.FindAllString(strings.ToLower(text), -1)
}

func isURL(tok string) bool {
	return urlPattern.MatchString(tok)
}
