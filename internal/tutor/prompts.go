package tutor

import "fmt"

// Answer modes. Unknown modes fall back to ModeNormal.
const (
	ModeNormal   = "normal"
	ModeELI5     = "eli5"
	ModeSocratic = "socratic"

	// modeExam is used internally for exam-question prediction; it is not a
	// chat mode.
	modeExam = "exam"
)

const standardPrompt = `You are an expert tutor. Answer the student's question based strictly on the provided context. If the context does not contain the answer, say so.

Student Question:
%s`

const eli5Prompt = `You are an expert tutor. Answer the student's question based strictly on the provided context.

Student Question:
%s

Task:
Provide two parts in your answer:
1. **Technical Explanation**: A purely academic answer based on the text.
2. **ELI5 (Explain Like I'm 5)**: A very simple analogy or explanation for a child.

Format:
[Technical]
...
[ELI5]
...`

const socraticPrompt = `You are a Socratic tutor. Do NOT answer the question directly.
Instead, ask a guiding question acting as a hint to help the student find the answer in the context.

Student Question:
%s`

const examPrompt = `Analyze the provided context and predict 3 potential exam questions.
Look for keywords like "important", "critical", "remember".

Output format:
1. Question (Difficulty: Easy/Medium/Hard)
2. Question ...
3. Question ...`

// normalizeMode maps unknown modes to ModeNormal so the cache key space stays
// closed over the known selectors.
func normalizeMode(mode string) string {
	switch mode {
	case ModeELI5, ModeSocratic:
		return mode
	default:
		return ModeNormal
	}
}

// instructionFor builds the generation instruction for a chat mode.
func instructionFor(mode, query string) string {
	switch mode {
	case ModeELI5:
		return fmt.Sprintf(eli5Prompt, query)
	case ModeSocratic:
		return fmt.Sprintf(socraticPrompt, query)
	default:
		return fmt.Sprintf(standardPrompt, query)
	}
}
