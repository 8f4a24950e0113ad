package resolve

import (
	"fmt"
	"html"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// searchKeywords derives the ordered, de-duplicated keyword list for the
// fuzzy search tier: the full title, the part before a colon, and the part
// before a parenthesis or dash. Broader keywords surface listings whose
// localized names drop English subtitles.
func searchKeywords(name string) []string {
	candidates := []string{
		name,
		strings.SplitN(name, ":", 2)[0],
		strings.SplitN(strings.SplitN(name, " (", 2)[0], " - ", 2)[0],
	}
	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, kw := range candidates {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// normalizeTitle folds a title for comparison: HTML entities decoded,
// diacritics stripped, lowercased. "Dưa Hấu" and "Dua hau" compare equal.
func normalizeTitle(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, " ", " ")
	s = unidecode.Unidecode(s)
	return strings.TrimSpace(strings.ToLower(s))
}

// nameMatches reports whether a candidate's localized or original name
// matches the target: case-insensitive exact match, or substring containment
// in either direction.
func nameMatches(candName, candOrigin, target string) bool {
	t := normalizeTitle(target)
	if t == "" {
		return false
	}
	for _, cand := range []string{normalizeTitle(candName), normalizeTitle(candOrigin)} {
		if cand == "" {
			continue
		}
		if cand == t || strings.Contains(cand, t) || strings.Contains(t, cand) {
			return true
		}
	}
	return false
}

// yearMatches applies the ±1 tolerance; an unknown target year matches
// anything.
func yearMatches(candYear, targetYear int) bool {
	if targetYear == 0 {
		return true
	}
	diff := candYear - targetYear
	return diff >= -1 && diff <= 1
}

// seasonMatches checks a candidate's localized name against a requested
// season. Season markers are "phần N", "season N" and " sN". Season 1 also
// accepts names carrying no marker at all: upstream publishes single seasons
// untagged, so an unmarked title is treated as implicitly season 1. That
// heuristic can misfire for single-season shows with sequel-like names; it
// trades precision for recall on purpose.
func seasonMatches(localizedName string, season int) bool {
	name := strings.ToLower(html.UnescapeString(localizedName))
	folded := unidecode.Unidecode(name)
	n := fmt.Sprintf("%d", season)

	markers := []string{"phần " + n, "phan " + n, "season " + n, " s" + n}
	for _, m := range markers {
		if strings.Contains(name, m) || strings.Contains(folded, m) {
			return true
		}
	}
	if season == 1 {
		unmarked := !strings.Contains(name, "phần ") && !strings.Contains(folded, "phan ") &&
			!strings.Contains(name, "season ")
		return unmarked
	}
	return false
}
