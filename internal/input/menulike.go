package input

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	priceRe = regexp.MustCompile(`[$€£]\s?\d|\b\d{1,3}\.\d{2}\b`)
	tokenRe = regexp.MustCompile(`[A-Za-z]{2,}`)
)

// menuWords are common menu vocabulary; any hit counts as a menu signal.
var menuWords = []string{
	"menu", "burger", "pizza", "salad", "drink", "appetizer", "dessert",
	"chicken", "fries", "soup", "sandwich", "pasta", "rice", "combo",
	"add on", "addons",
}

// LooksLikeMenu reports whether text plausibly came from a restaurant menu.
// It looks for prices, line breaks, and menu vocabulary, and flags keyboard
// smash ("dfdsfsdg") by vowel ratio and token length. Purely advisory.
func LooksLikeMenu(text string) bool {
	candidate := strings.TrimSpace(text)
	lowered := strings.ToLower(candidate)

	tokens := tokenRe.FindAllString(candidate, -1)
	if len(tokens) == 0 {
		return false
	}

	hasPrice := priceRe.MatchString(candidate)
	hasLineBreaks := strings.Count(candidate, "\n") >= 2
	hasMenuWords := false
	for _, word := range menuWords {
		if strings.Contains(lowered, word) {
			hasMenuWords = true
			break
		}
	}

	if hasPrice || hasLineBreaks || hasMenuWords {
		return true
	}

	// No menu signals at all. Short gibberish fails the vowel and token
	// length checks; anything under 120 chars without a signal is dubious.
	alphaCount, vowelCount := 0, 0
	for _, r := range candidate {
		if unicode.IsLetter(r) {
			alphaCount++
			if strings.ContainsRune("aeiouAEIOU", r) {
				vowelCount++
			}
		}
	}
	vowelRatio := 0.0
	if alphaCount > 0 {
		vowelRatio = float64(vowelCount) / float64(alphaCount)
	}
	longTokens := 0
	for _, tok := range tokens {
		if len(tok) >= 9 {
			longTokens++
		}
	}
	longTokenRatio := float64(longTokens) / float64(len(tokens))

	if len(tokens) <= 3 && (vowelRatio < 0.22 || longTokenRatio > 0.6) {
		return false
	}

	return len([]rune(candidate)) >= 120
}
