package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	FormBracket = "bracket"
	FormQuoted  = "quoted"
	FormLabeled = "labeled"
)

type Mention struct {
	Name   string
	Offset int
	Form   string
}

var (
	bracketPattern = regexp.MustCompile(`\[\[([^\[\]\n]+)\]\]`)
	quotedPattern  = regexp.MustCompile(`"([A-Z][^"\n]{0,60})"`)
	curlyPattern   = regexp.MustCompile(`“([A-Z][^”\n]{0,60})”`)
	labeledPattern = regexp.MustCompile(`\bNPC:\s*([A-Z][A-Za-z'’\-]+(?: [A-Z][A-Za-z'’\-]+)*)`)
)

var connectorWords = map[string]bool{
	"of":  true,
	"the": true,
	"de":  true,
	"van": true,
	"von": true,
}

func ExtractMentions(text string) []Mention {
	var mentions []Mention

	for _, m := range bracketPattern.FindAllStringSubmatchIndex(text, -1) {
		name := strings.TrimSpace(text[m[2]:m[3]])
		if name == "" {
			continue
		}
		mentions = append(mentions, Mention{Name: name, Offset: m[0], Form: FormBracket})
	}

	for _, pattern := range []*regexp.Regexp{quotedPattern, curlyPattern} {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			name := strings.TrimSpace(text[m[2]:m[3]])
			if !properName(name) {
				continue
			}
			mentions = append(mentions, Mention{Name: name, Offset: m[0], Form: FormQuoted})
		}
	}

	for _, m := range labeledPattern.FindAllStringSubmatchIndex(text, -1) {
		name := strings.TrimSpace(text[m[2]:m[3]])
		if name == "" {
			continue
		}
		mentions = append(mentions, Mention{Name: name, Offset: m[0], Form: FormLabeled})
	}

	return dedupeMentions(mentions)
}

func MatchNames(text string, names []string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, name := range names {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}
		if containsWord(lower, needle) {
			matched = append(matched, name)
		}
	}
	return matched
}

func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func properName(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	for i, w := range words {
		runes := []rune(w)
		if unicode.IsUpper(runes[0]) {
			continue
		}
		if i > 0 && connectorWords[strings.ToLower(w)] {
			continue
		}
		return false
	}
	last := words[len(words)-1]
	switch last[len(last)-1] {
	case '.', '!', '?', ',':
		return false
	}
	return true
}

func dedupeMentions(mentions []Mention) []Mention {
	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Offset < mentions[j].Offset
	})

	seen := make(map[string]struct{}, len(mentions))
	out := mentions[:0]
	for _, m := range mentions {
		key := Normalize(m.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

func containsWord(haystack, needle string) bool {
	for start := 0; ; {
		idx := strings.Index(haystack[start:], needle)
		if idx == -1 {
			return false
		}
		idx += start
		end := idx + len(needle)
		beforeOK := idx == 0 || !isWordChar(rune(haystack[idx-1]))
		afterOK := end == len(haystack) || !isWordChar(rune(haystack[end]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
