package research

// Prompts holds the templates of every model call. Placeholders are written
// as {name}; see each default for the names it receives.
type Prompts struct {
	Plan        string
	PlanReview  string
	QueryWriter string
	WebSearcher string
	Reflection  string
	Answer      string
}

// DefaultPrompts returns the built-in English templates.
func DefaultPrompts() Prompts {
	return Prompts{
		Plan:        planInstructions,
		PlanReview:  planReviewInstructions,
		QueryWriter: queryWriterInstructions,
		WebSearcher: webSearcherInstructions,
		Reflection:  reflectionInstructions,
		Answer:      answerInstructions,
	}
}

// merge keeps the templates of p and takes the rest from fallback.
func (p Prompts) merge(fallback Prompts) Prompts {
	pick := func(value, other string) string {
		if value != "" {
			return value
		}
		return other
	}
	return Prompts{
		Plan:        pick(p.Plan, fallback.Plan),
		PlanReview:  pick(p.PlanReview, fallback.PlanReview),
		QueryWriter: pick(p.QueryWriter, fallback.QueryWriter),
		WebSearcher: pick(p.WebSearcher, fallback.WebSearcher),
		Reflection:  pick(p.Reflection, fallback.Reflection),
		Answer:      pick(p.Answer, fallback.Answer),
	}
}

const planInstructions = `# Task
You are a senior research analyst. Draft a research plan for the topic below.
The plan will be shown to the user, who may ask for changes before any searching starts.

# Instructions
- Today is {current_date}.
- Split the topic into the dimensions a thorough report must cover.
- For every dimension, say what evidence should be collected.
- If a previous draft is given, revise it according to the latest user feedback instead of starting over.
- Keep the plan short enough to review in a minute.

# Previous draft
{plan}

# Conversation
{research_topic}

# Output Format
Return the plan as markdown inside a single block opened with ` + "```markdown" + ` and closed with ` + "```" + `.`

const planReviewInstructions = `# Task
Decide whether the user accepted the research plan below.

# Plan
{plan}

# Latest user feedback
{feedback}

# Output Format
Return a JSON object inside a ` + "```json" + ` block with two fields:
- "is_satisfied" (bool): true when the user agrees with the plan or asks to proceed, false when they request changes.
- "rationale" (string): one sentence explaining the decision.

Example:
` + "```json" + `
{"is_satisfied": false, "rationale": "The user wants pricing data added."}
` + "```"

const queryWriterInstructions = `# Task
Write web search queries that collect the material for a professional research report on the topic below.

# Instructions
- Today is {current_date}. Prefer recent sources unless the topic asks otherwise.
- Produce at most {number_queries} queries.
- Each query should cover a different aspect of the topic; avoid near-duplicates.
- A broad topic deserves more than one query.
- Follow the research plan when one is given.

# Research plan
{plan}

# Topic
{research_topic}

# Output Format
Return a JSON object inside a ` + "```json" + ` block with two fields:
- "rationale" (string): why these queries cover the topic.
- "query" (list of strings): the search queries.

Example:
` + "```json" + `
{"rationale": "...", "query": ["first query", "second query"]}
` + "```"

const webSearcherInstructions = `# Task
You are an intelligence analyst. Condense the search results below into concise prose about the search topic, citing where each fact comes from.

# Instructions
- Today is {current_date}. Use it to judge how current each result is.
- Keep only what is relevant to the search topic.
- Cite every fact with a markdown link whose target is the result's "url" value, copied exactly, for example [Reuters](https://search.com/id/0-3).
- Never invent URLs.

# Search topic
{query}

# Search results
` + "```json" + `
{web_search_result}
` + "```" + `

# Output Format
Return the summary inside a single block opened with ` + "```text" + ` and closed with ` + "```" + `.`

const reflectionInstructions = `# Task
You are a research expert reviewing the material gathered so far for the topic: {research_topic}

Decide whether it is enough to write a thorough report and, if not, what to search for next.

# Instructions
- Today is {current_date}.
- Look for missing technical details, implementation specifics and recent developments.
- If the material already covers the topic, do not propose follow-up queries.
- Otherwise propose at most {number_queries} self-contained follow-up queries that close the gap.

# Material gathered so far
{summaries}

# Output Format
Return a JSON object inside a ` + "```json" + ` block with three fields:
- "is_sufficient" (bool)
- "knowledge_gap" (string): what is missing, empty when sufficient.
- "follow_up_queries" (list of strings)

Example:
` + "```json" + `
{"is_sufficient": false, "knowledge_gap": "...", "follow_up_queries": ["..."]}
` + "```"

const answerInstructions = `# Task
You are a research expert. Write a detailed, professional report on the topic below using the material gathered from the web.

# Instructions
- Today is {current_date}.
- Structure the report in markdown with headings and, where useful, tables.
- Support claims with the material and cite each source with a markdown link, copying the link target exactly as it appears in the material.
- Do not cite anything that is not in the material.

# Topic
{research_topic}

# Material
{summaries}`
