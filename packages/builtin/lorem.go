package builtin

import (
	"math/rand"
	"strings"
)

var loremWords = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing elit sed do
eiusmod tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam
quis nostrud exercitation ullamco laboris nisi aliquip ex ea commodo consequat
duis aute irure in reprehenderit voluptate velit esse cillum fugiat nulla
pariatur excepteur sint occaecat cupidatat non proident sunt culpa qui officia
deserunt mollit anim id est laborum vero eos accusamus iusto odio dignissimos
ducimus blanditiis praesentium voluptatum deleniti atque corrupti quos dolores
quas molestias excepturi occaecati cupiditate provident similique`)

// LoremWord returns a single random lorem ipsum word.
func LoremWord() string {
	return loremWords[rand.Intn(len(loremWords))]
}

// LoremWords returns n space separated lorem ipsum words.
func LoremWords(n int) string {
	if n <= 0 {
		return ""
	}
	words := make([]string, n)
	for i := range words {
		words[i] = LoremWord()
	}
	return strings.Join(words, " ")
}

// LoremSentence returns a capitalised sentence of 4 to 12 words ending in a period.
func LoremSentence() string {
	s := LoremWords(4 + rand.Intn(9))
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

// LoremText returns a short paragraph of 2 to 5 sentences.
func LoremText() string {
	n := 2 + rand.Intn(4)
	sentences := make([]string, n)
	for i := range sentences {
		sentences[i] = LoremSentence()
	}
	return strings.Join(sentences, " ")
}

func funcLoremWord(_ []string) any {
	return LoremWord()
}

func funcLoremWords(args []string) any {
	n := 3
	if len(args) >= 1 {
		n = intArg("loremWords", "count", args[0], n)
	}
	return LoremWords(n)
}

func funcLoremSentence(_ []string) any {
	return LoremSentence()
}

func funcLoremText(_ []string) any {
	return LoremText()
}
