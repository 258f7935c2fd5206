package extractor

import "fmt"

const systemPrompt = `You are an expert engineer reviewing documentation changes.
Extract reusable engineering patterns from the provided content.

Respond with ONLY a JSON array. Each element:
{
  "title": "short pattern name",
  "description": "one or two sentences on when and why to apply it",
  "content": "the pattern itself: the rule, snippet, or migration step",
  "category": "api_change | best_practice | warning | example | concept | performance | security | breaking_change | deprecation | other",
  "confidence": 0.0-1.0,
  "relevance": 0.0-1.0,
  "tags": ["lowercase", "keywords"]
}

Rules:
- Only include patterns actually supported by the content. Do not invent.
- Breaking changes, API changes and deprecations take priority over examples.
- Return [] if the content holds nothing actionable.`

func userPrompt(sourceName, title, excerpt string) string {
	return fmt.Sprintf("Source: %s\nDocument: %s\n\nContent:\n%s", sourceName, title, excerpt)
}
