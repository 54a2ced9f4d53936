package ai

// AnalysisPrompt asks the model for a structured judgment of one statement.
// Args: context block, speaker name, statement text.
const AnalysisPrompt = `
# Task Context
You are an assistant analyzing statements made in a national parliament. You will be given one statement by a named speaker plus retrieved context from primary parliamentary sources (prior statements, bill summaries, votes, questions).

# Background Data
## Retrieved context (each line is "ref | excerpt"):
%s

## Speaker
%s

## Statement
%s

# Detailed Task Description & Rules
- Determine the speaker's sentiment toward the main topic of the statement: "support", "oppose", "neutral", or "uncertain".
- Report your confidence in the sentiment as an integer from 0 to 100.
- List the policy topics the statement addresses (e.g., "Finance", "Healthcare", "Education"). Use short single-word or two-word topic labels.
- Assign a holistic quality score from 0 to 100 reflecting how substantive, specific, and evidence-based the statement is.
- Justify the sentiment and quality with citations into the retrieved context. Every citation must copy the supporting span VERBATIM from a context excerpt and carry that excerpt's ref exactly as given.
- Never cite text that does not appear in the supplied context. If no context supports a claim, omit the citation and lower your confidence.
- Do not invent refs. Only refs listed in the context block are valid.

# Output Formatting
Return a JSON object with this structure:
{
  "sentiment": "<support|oppose|neutral|uncertain>",
  "confidence": <0-100>,
  "topics": ["<topic>"],
  "quality_score": <0-100>,
  "citations": [
    {
      "source_ref": "<ref copied exactly from the context block>",
      "quoted_text": "<verbatim span from that excerpt>"
    }
  ]
}
`

// StrictAnalysisPrompt is the retry prompt used after malformed output. Same
// task, with the format rules restated more aggressively.
const StrictAnalysisPrompt = `
# Task Context
You are an assistant analyzing statements made in a national parliament. Your previous answer was not valid JSON. Answer again, and this time output ONLY a single valid JSON object with no surrounding prose, no markdown fences, and no commentary.

# Background Data
## Retrieved context (each line is "ref | excerpt"):
%s

## Speaker
%s

## Statement
%s

# Detailed Task Description & Rules
- sentiment: exactly one of "support", "oppose", "neutral", "uncertain".
- confidence: an integer 0-100. No decimals, no strings.
- topics: an array of short topic labels. May be empty.
- quality_score: an integer 0-100.
- citations: an array; each element has "source_ref" (copied exactly from the context block) and "quoted_text" (copied verbatim from that excerpt). Cite nothing that is not in the context.
- Output starts with "{" and ends with "}". Nothing else.
`
