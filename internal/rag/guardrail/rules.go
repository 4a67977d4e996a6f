package guardrail

import "regexp"

// metaPatterns catch questions about the assistant itself, never about the portfolio owner.
var metaPatterns = compile(
	// identity
	`\b(what|which)\s+(model|ai|system|chatbot|bot|llm)\s+(are\s+you|is\s+this)`,
	`\bare\s+you\s+(an?\s+)?(ai|bot|chatbot|model|gemini|gpt|claude|llama)`,
	`\bwhat\s+are\s+you\s+(exactly|really|made\s+of)`,
	`\bhow\s+do\s+you\s+(work|function|think|process)`,

	// prompt extraction
	`\b(system|hidden|secret)\s*prompt`,
	`\bignore\s+(previous|above|all|prior)\s*(instructions?|prompts?)`,
	`\bshow\s+(me\s+)?(your|the)\s*(prompt|instructions?|system)`,
	`\bwhat\s+(are\s+)?your\s+instructions?\s*(for|from)`,
	`\brepeat\s+(the\s+)?(system|initial|above)\s*(prompt|instructions)`,

	// architecture probing
	`\brag\s*(system|pipeline|retrieval)`,
	`\bvector\s*database`,
	`\blancedb`,
	`\bhow\s+(were|are)\s+you\s+(trained|built|programmed)`,

	// jailbreaks
	`\bdan\s*mode`,
	`\bjailbreak`,
	`\bbypass\s+(your\s+)?restrictions`,
	`\bforget\s+(everything|all)\s+(you\s+know|about)`,
)

// forbiddenPhrases reveal implementation details when they show up in a reply.
var forbiddenPhrases = []string{
	"i'm an ai",
	"i am an ai",
	"language model",
	"gemini",
	"llm",
	"knowledge base",
	"rag system",
	"vector database",
	"lancedb",
	"indexed document",
	"system prompt",
	"my instructions",
	"i was trained",
	"i'm a chatbot",
	"i am a chatbot",
	"resume parsing",
	"pdf extraction",
	"embedding model",
	"retrieval augmented",
}

var uncertaintyMarkers = []string{
	"i'm not sure what i am",
	"i think i might be",
	"i don't have personal",
	"as an ai",
	"my training data",
}

var genericWorkKeywords = []string{
	"project", "skill", "experience", "internship", "ui/ux", "data science", "machine learning",
}

var deflectionTemplates = []string{
	"I'm here to talk about %s's work and experience. What aspect of their skills interests you?",
	"Let's focus on %s's projects and capabilities. Anything specific you'd like to know?",
	"I'm happy to discuss %s's professional background. What would you like to explore?",
	"That's outside my scope here. I'm focused on %s's work. Curious about their projects or experience?",
}

const circuitBreakerTemplate = "I'm focused on helping with questions about %s's projects and experience. If you have professional inquiries, I'm happy to help with those."

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}
