package understanding

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
)

const decideSystemPrompt = "You manage a long-term memory profile about the user. " +
	"Read each message and decide how the profile should change."

const decideUserTemplate = `The user said: %q

Memories already stored about them (most recent first):
%s

Choose exactly one action:
- ADD: the message contains new information about the user worth keeping
- UPDATE: the message changes something one of the stored memories says
- IGNORE: nothing to store (questions, greetings, or facts already stored)

For example:
- "I use Spotify" with nothing about music stored -> ADD
- "I switched from Spotify to Apple Music" with a Spotify memory stored -> UPDATE
- "I still use VSCode" with a VSCode memory stored -> IGNORE
- "What tools do I use?" -> IGNORE

For UPDATE, quote the stored memory being replaced in memory_to_replace.

Reply with JSON only, in this shape:
{
  "action": "ADD|UPDATE|IGNORE",
  "reasoning": "one short sentence",
  "memory_to_replace": "stored memory text, UPDATE only",
  "new_memory": {
    "content": "the fact to store, written about the user",
    "category": "%s",
    "confidence": 0.9,
    "tags": ["short", "tags"]
  }
}
For IGNORE, send only action and reasoning.`

const classifySystemPrompt = "You classify chat messages. Decide whether the user is asking about " +
	"information they shared before, sharing new information about themselves, or just chatting."

const classifyUserTemplate = `Message: %q

Answer with one label:
- memory_question: asks about the user's own stored details ("What is my name?", "Where do I work?")
- memory_sharing: states a fact about the user ("My name is John", "I work at Google")
- general_chat: greetings or general questions not about the user ("Hi", "What's good for coding?")

Questions that use "my" or "do I" are almost always memory_question.
Reply with the label only.`

const synthesizeSystemPrompt = "You answer the user's question directly and naturally " +
	"using only the memories provided."

const synthesizeUserTemplate = `Question: %q

What I remember about the user:
%s

Answer the specific question from these memories in one or two sentences,
speaking to the user ("Your name is Sarah.", "You work at Tech Corp.").`

const generalSystemPrompt = "You are a friendly assistant having a casual conversation."

const generalUserTemplate = `The user said: %q

Reply briefly and naturally.`

func decidePrompt(text string, recent []string) string {
	stored := "(none)"
	if len(recent) > 0 {
		stored = bulletList(recent)
	}
	return fmt.Sprintf(decideUserTemplate, text, stored, categoryChoices())
}

func classifyPrompt(text string) string {
	return fmt.Sprintf(classifyUserTemplate, text)
}

func synthesizePrompt(query string, contents []string) string {
	return fmt.Sprintf(synthesizeUserTemplate, query, bulletList(contents))
}

func generalPrompt(text string) string {
	return fmt.Sprintf(generalUserTemplate, text)
}

func bulletList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func categoryChoices() string {
	cats := memory.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}
