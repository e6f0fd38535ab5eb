// Package prompt turns story context into provider prompts.
package prompt

import (
	"fmt"
	"strings"
)

const (
	// Only the most recent segments are sent back to the model.
	maxContextSegments = 3
	maxChoiceWords     = 15
	minMaxTokens       = 400
	maxMaxTokens       = 1500
)

// StoryContext is everything the model needs for the next segment.
type StoryContext struct {
	Title            string
	Description      string
	Genre            string
	TargetAge        string
	Characters       []string
	Setting          string
	WordsPerChapter  int
	ChapterNumber    int // 1-based
	TotalChapters    int
	PreviousSegments []string
	ChosenChoice     string
}

// IsFinalChapter reports whether the next segment ends the story plan.
func (c StoryContext) IsFinalChapter() bool {
	return c.TotalChapters > 0 && c.ChapterNumber >= c.TotalChapters
}

type Prompts struct {
	System    string
	User      string
	MaxTokens int
}

// Build renders the system and user prompts for c.
func Build(c StoryContext) Prompts {
	band := LookupAgeBand(c.TargetAge)
	words := c.WordsPerChapter
	if words <= 0 {
		words = band.MaxWords
	}

	var sys strings.Builder
	sys.WriteString("You are a children's story writer creating an interactive story.\n")
	fmt.Fprintf(&sys, "Audience: %s.\n", band.Label)
	fmt.Fprintf(&sys, "Tone: %s.\n", band.Tone)
	fmt.Fprintf(&sys, "Length: about %d words of story text.\n", words)
	sys.WriteString("Keep the content safe, kind and age-appropriate. Never include violence beyond mild, resolved peril.\n\n")
	sys.WriteString("Output format:\n")
	sys.WriteString("Write the chapter as plain prose without a heading.\n")
	sys.WriteString("Then write a line containing only \"CHOICES:\".\n")
	sys.WriteString("Then write exactly three numbered lines:\n")
	sys.WriteString("1. <first option>\n2. <second option>\n3. <third option>\n")
	fmt.Fprintf(&sys, "Each option has at most %d words and describes what the hero could do next.\n", maxChoiceWords)

	var user strings.Builder
	if c.Title != "" {
		fmt.Fprintf(&user, "Story title: %s\n", c.Title)
	}
	if c.Description != "" {
		fmt.Fprintf(&user, "Premise: %s\n", c.Description)
	}
	fmt.Fprintf(&user, "Genre: %s\n", c.Genre)
	if len(c.Characters) > 0 {
		fmt.Fprintf(&user, "Characters: %s\n", strings.Join(c.Characters, ", "))
	}
	if c.Setting != "" {
		fmt.Fprintf(&user, "Setting: %s\n", c.Setting)
	}
	if c.TotalChapters > 0 {
		fmt.Fprintf(&user, "Chapter %d of %d.\n", c.ChapterNumber, c.TotalChapters)
	}

	previous := c.PreviousSegments
	if len(previous) > maxContextSegments {
		previous = previous[len(previous)-maxContextSegments:]
	}
	if len(previous) > 0 {
		user.WriteString("\nThe story so far:\n")
		for _, segment := range previous {
			user.WriteString(strings.TrimSpace(segment))
			user.WriteString("\n\n")
		}
	}

	switch {
	case c.ChosenChoice != "":
		fmt.Fprintf(&user, "The reader chose: %q. Continue the story from that choice.\n", c.ChosenChoice)
	case len(previous) == 0:
		user.WriteString("Write the opening chapter and introduce the characters.\n")
	default:
		user.WriteString("Continue the story.\n")
	}
	if c.IsFinalChapter() {
		user.WriteString("This is the final chapter: bring the adventure to a warm, satisfying ending. Still offer three choices for an epilogue.\n")
	}

	return Prompts{
		System:    sys.String(),
		User:      user.String(),
		MaxTokens: maxTokensFor(words),
	}
}

// maxTokensFor leaves room for the choices block on top of the story text.
func maxTokensFor(words int) int {
	tokens := words*2 + 200
	if tokens < minMaxTokens {
		return minMaxTokens
	}
	if tokens > maxMaxTokens {
		return maxMaxTokens
	}
	return tokens
}
