// Package catalog holds the static curriculum: for every supported
// language an ordered sequence of levels, each with theory content, a
// fixed quiz sequence and a fixed coding-challenge sequence. The
// catalog is immutable after init; the progression core treats it as a
// read-only external collaborator.
package catalog

import (
	"fmt"
	"strings"
)

// StartLevelID is the sentinel id of the first level of every language.
// Every profile's progress set contains it from the moment the profile
// is created.
const StartLevelID = "start"

// LevelsPerLanguage is the number of levels generated per language.
const LevelsPerLanguage = 50

// Languages is the fixed list of supported languages. Order matters for
// presentation; progress maps are keyed by these exact names.
var Languages = []string{
	"JavaScript", "Python", "HTML", "TypeScript", "Java", "C", "C++", "C#",
	"CSS", "SQL", "React", "Go", "Rust", "PHP", "Bash", "Next.js",
}

// Theory is the reading material shown before the quiz phase.
type Theory struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Example string `json:"example,omitempty"`
}

// QuizItem is a single multiple-choice question. Exactly one option is
// correct; Hint1 is revealed after the first wrong answer, Hint2 after
// the second and subsequent ones.
type QuizItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Hint1        string   `json:"hint1"`
	Hint2        string   `json:"hint2"`
}

// Challenge is a single coding exercise. A submission passes when,
// after stripping all whitespace from both sides, it contains or
// equals the solution.
type Challenge struct {
	Instruction string `json:"instruction"`
	InitialCode string `json:"initialCode"`
	Solution    string `json:"solution"`
	Hint        string `json:"hint"`
	Language    string `json:"language"`
}

// Level is one unit of curriculum: theory, then quizzes, then
// challenges, in that order.
type Level struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Theory     Theory      `json:"theory"`
	Quizzes    []QuizItem  `json:"quizzes"`
	Challenges []Challenge `json:"challenges"`
}

var curricula map[string][]Level

func init() {
	curricula = make(map[string][]Level, len(Languages))
	for _, lang := range Languages {
		curricula[lang] = generateLevels(lang)
	}
	applyStartOverrides()
}

// IsSupported reports whether lang is a catalog language.
func IsSupported(lang string) bool {
	_, ok := curricula[lang]
	return ok
}

// Levels returns the ordered level list for lang, or nil for an
// unknown language. Callers must not mutate the returned slice.
func Levels(lang string) []Level {
	return curricula[lang]
}

// LevelByID returns the level with the given id in lang together with
// its 0-based sequence position.
func LevelByID(lang, id string) (*Level, int, bool) {
	for i := range curricula[lang] {
		if curricula[lang][i].ID == id {
			return &curricula[lang][i], i, true
		}
	}
	return nil, 0, false
}

func generateLevels(lang string) []Level {
	levels := make([]Level, 0, LevelsPerLanguage)
	for i := 1; i <= LevelsPerLanguage; i++ {
		id := StartLevelID
		topic := "Introduction"
		if i > 1 {
			id = fmt.Sprintf("level-%d", i)
			topic = fmt.Sprintf("Advanced Concept %d", i)
		}

		content := fmt.Sprintf("Level %d of %s focuses on %s. By now, you are becoming a pro. "+
			"We will dive deeper into professional patterns, optimization, and real-world application of %s. "+
			"Professional developers use these techniques every day to build scalable systems.", i, lang, topic, lang)
		example := fmt.Sprintf("// Professional Level %d pattern in %s\nfunction master%d() {\n  return \"Level %d Complete\";\n}", i, lang, i, i)
		if i == 1 {
			content = fmt.Sprintf("Welcome to %s! In this level, we will cover the absolute basics. "+
				"%s is widely used in modern software engineering. We'll explore syntax, basic structure, "+
				"and why it's powerful. Pay close attention because we will ask 5 questions about this!", lang, lang)
			example = fmt.Sprintf("// Basic Hello World in %s\nconsole.log(\"Welcome to %s!\");", lang, lang)
		}

		levels = append(levels, Level{
			ID:    id,
			Title: fmt.Sprintf("%s (%d/%d)", topic, i, LevelsPerLanguage),
			Theory: Theory{
				Title:   fmt.Sprintf("Learning %s - Level %d", lang, i),
				Content: content,
				Example: example,
			},
			Quizzes:    genericQuizzes(fmt.Sprintf("%s %s", lang, topic), i),
			Challenges: genericChallenges(topic, strings.ReplaceAll(strings.ToLower(lang), ".", ""), i),
		})
	}
	return levels
}

func genericQuizzes(topic string, level int) []QuizItem {
	return []QuizItem{
		{
			Question:     fmt.Sprintf("What is the primary purpose of %s in Level %d?", topic, level),
			Options:      []string{"Processing Data", "Instructions", "Displaying UI", "Hardware"},
			CorrectIndex: 1,
			Hint1:        "Think about how code gives commands.",
			Hint2:        "The answer starts with 'I'.",
		},
		{
			Question:     fmt.Sprintf("How do we typically define %s?", topic),
			Options:      []string{"Syntax", "Keywords", "Functions", "All of above"},
			CorrectIndex: 3,
			Hint1:        "It involves multiple elements.",
			Hint2:        "It's the most comprehensive option.",
		},
		{
			Question:     fmt.Sprintf("Is %s essential for professional development?", topic),
			Options:      []string{"Yes", "No", "Sometimes", "Only in legacy code"},
			CorrectIndex: 0,
			Hint1:        "Most definitely.",
			Hint2:        "It's a positive answer.",
		},
		{
			Question:     fmt.Sprintf("Which environment is best for %s?", topic),
			Options:      []string{"Production", "Staging", "Development", "Any of above"},
			CorrectIndex: 3,
			Hint1:        "Context matters.",
			Hint2:        "Every environment has its use.",
		},
		{
			Question:     "What should you do after mastering this?",
			Options:      []string{"Stop", "Continue learning", "Delete code", "Nothing"},
			CorrectIndex: 1,
			Hint1:        "The journey never ends.",
			Hint2:        "Growth is key.",
		},
	}
}

func genericChallenges(topic, lang string, level int) []Challenge {
	return []Challenge{
		{
			Instruction: fmt.Sprintf("Mastery Challenge Part 1: Implement %s for Level %d", topic, level),
			Solution:    fmt.Sprintf("// Level %d solution", level),
			Hint:        "Apply what you learned in theory",
			Language:    lang,
		},
		{
			Instruction: fmt.Sprintf("Mastery Challenge Part 2: Refine %s for Level %d", topic, level),
			Solution:    fmt.Sprintf("// Level %d final", level),
			Hint:        "Focus on efficiency",
			Language:    lang,
		},
	}
}

// Hand-written intros for a few start lessons; the generated text is a
// placeholder for the rest.
func applyStartOverrides() {
	overrides := map[string]string{
		"JavaScript": "JavaScript is the world's most popular programming language. It is the language of the Web. In this lesson, we will learn how to output data using console.log(), understand basic variables, and see why JS is essential for every developer.",
		"Python":     "Python is a high-level, interpreted, general-purpose programming language. Its design philosophy emphasizes code readability with its use of significant indentation. It's the #1 choice for AI and Data Science.",
		"HTML":       "HTML stands for HyperText Markup Language. It is the standard markup language for creating Web pages. It describes the structure of a Web page and consists of a series of elements.",
		"PHP":        "PHP is a popular general-purpose scripting language that is especially suited to web development. It is fast, flexible and pragmatic, powering everything from your blog to the most popular websites in the world.",
		"Bash":       "Bash is a Unix shell and command language. It's the default shell on many Linux distributions and macOS. Mastering Bash allows you to automate tasks and navigate systems like a pro.",
		"Next.js":    "Next.js is a React framework for building full-stack web applications. You use React Components to build user interfaces, and Next.js for additional features and optimizations.",
	}
	for lang, content := range overrides {
		if levels := curricula[lang]; len(levels) > 0 {
			levels[0].Theory.Content = content
		}
	}
}
