// internal/content/texts.go
package content

import "math/rand"

// Built-in corpus used when no Postgres corpus is available. Categories and
// difficulty tiers mirror the race_texts table.
const (
	DefaultCategory   = "quotes"
	DefaultDifficulty = "medium"
)

var staticTexts = map[string]map[string][]string{
	"quotes": {
		"easy": {
			"The only way to do great work is to love what you do.",
			"We will either find a way or make one.",
		},
		"medium": {
			"Innovation distinguishes between a leader and a follower. Stay hungry, stay foolish.",
			"The best way to predict the future is to invent it. Code is like humor. When you have to explain it, it's bad.",
		},
		"hard": {
			"Your work is going to fill a large part of your life, and the only way to be truly satisfied is to do what you believe is great work.",
		},
	},
	"literature": {
		"easy": {
			"It was the best of times, it was the worst of times.",
		},
		"medium": {
			"To be or not to be, that is the question: Whether 'tis nobler in the mind to suffer the slings and arrows of outrageous fortune.",
		},
		"hard": {
			"In the beginning was the Word, and the Word was with God, and the Word was God. All things were made through him, and without him was not any thing made that was made.",
		},
	},
	"programming": {
		"easy": {
			"function hello() { return 'Hello World'; }",
		},
		"medium": {
			"const fibonacci = (n) => n <= 1 ? n : fibonacci(n-1) + fibonacci(n-2);",
			"The art of programming is the skill of controlling complexity.",
		},
		"hard": {
			"class BinarySearchTree { constructor() { this.root = null; } insert(value) { this.root = this.insertNode(this.root, value); } }",
		},
	},
}

// staticText picks a random text for the category and difficulty, degrading
// to the default tiers when the requested ones are unknown.
func staticText(category, difficulty string) string {
	tiers, ok := staticTexts[category]
	if !ok {
		tiers = staticTexts[DefaultCategory]
	}
	texts, ok := tiers[difficulty]
	if !ok || len(texts) == 0 {
		texts = tiers[DefaultDifficulty]
	}
	if len(texts) == 0 {
		// Unreachable with the corpus above; guard anyway.
		return staticTexts[DefaultCategory][DefaultDifficulty][0]
	}
	return texts[rand.Intn(len(texts))]
}
