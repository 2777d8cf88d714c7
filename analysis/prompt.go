package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxInputChars bounds the text sent to the model.
const MaxInputChars = 4000

const systemPrompt = `You are a compliance risk analyst. You read business and legal documents and report the compliance risks they contain. You always answer with a single JSON object and nothing else.`

const userPromptTemplate = `Analyze the following document text and identify its compliance risks.

Document Text:
%s

Instructions:
1. Group findings into short risk categories such as "legal", "financial", "data privacy", "operational" or "regulatory".
2. Give each category a score from 0 (no risk) to 100 (severe risk).
3. Give each category a confidence between 0 and 1.
4. Explain each score in one or two sentences.
5. If the document carries no compliance risk, return an empty array.

Response Format:
{
    "assessments": [
        {"category": "legal", "score": 72, "confidence": 0.8, "reasoning": "..."}
    ]
}`

// truncateText cuts text to MaxInputChars runes.
func truncateText(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxInputChars {
		return text
	}
	return string(runes[:MaxInputChars])
}

func buildUserPrompt(text string) string {
	return fmt.Sprintf(userPromptTemplate, truncateText(text))
}

type assessmentResponse struct {
	Assessments []struct {
		Category   string   `json:"category"`
		Score      *float64 `json:"score"`
		Confidence *float64 `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
	} `json:"assessments"`
}

// parseAssessments decodes the model's JSON answer. Entries without a score
// or confidence are kept with Missing set.
func parseAssessments(content string) ([]Candidate, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var resp assessmentResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.Assessments == nil {
		return nil, fmt.Errorf("%w: missing assessments array", ErrInvalidResponse)
	}

	candidates := make([]Candidate, 0, len(resp.Assessments))
	for _, a := range resp.Assessments {
		c := Candidate{
			Category:  strings.TrimSpace(a.Category),
			Reasoning: strings.TrimSpace(a.Reasoning),
		}
		switch {
		case a.Score == nil:
			c.Missing = MissingScore
		case a.Confidence == nil:
			c.Missing = MissingConfidence
		default:
			c.RawScore = *a.Score
			c.Confidence = *a.Confidence
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
