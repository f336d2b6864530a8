package redissearch

import (
	"regexp"
	"strings"
)

var reAlphanumeric = regexp.MustCompile(`[a-z0-9_.-]+`)

// tokenize 分词
// 文本转小写后提取：英文单词/数字/版本号组合，中文单字（unigram），
// 以及连续中文双字组合（bigram）
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var tokens []string

	add := func(token string) {
		if _, ok := seen[token]; !ok {
			tokens = append(tokens, token)
			seen[token] = struct{}{}
		}
	}

	for _, token := range reAlphanumeric.FindAllString(lower, -1) {
		add(token)
	}

	runes := []rune(lower)
	for _, r := range runes {
		if isHan(r) {
			add(string(r))
		}
	}
	for i := 0; i < len(runes)-1; i++ {
		if isHan(runes[i]) && isHan(runes[i+1]) {
			add(string(runes[i : i+2]))
		}
	}
	return tokens
}

func isHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}
