package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

const questionSystemPrompt = `You are a hiring manager conducting a spoken mock interview.
Write every question in first person as the interviewer, addressed to the candidate with "you" and "your".
Follow a traditional interview format: start with an introduction, move through questions relevant to the role and company, and end by asking the candidate whether they have any questions.
Respond ONLY with a JSON object of the form {"questions": ["..."], "type": "Behavioral" | "Technical" | "Mixed"} with no additional text, markdown, or backticks.`

type questionsPayload struct {
	Questions []string `json:"questions"`
	Type      string   `json:"type"`
}

// GenerateQuestions produces the ordered question list and the inferred
// interview type for a session.
func (c *Client) GenerateQuestions(ctx context.Context, req ports.QuestionRequest) (domain.QuestionSet, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d interview questions for a %d minute interview for a %s position", req.QuestionCount, req.DurationMin, req.Role)
	if req.Company != "" {
		fmt.Fprintf(&b, " at %s", req.Company)
	}
	b.WriteString(".\n")
	if req.JobDescription != "" {
		fmt.Fprintf(&b, "Job description: %s\n", req.JobDescription)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, "Additional context: %s\n", req.Context)
	}
	if req.CandidateName != "" {
		fmt.Fprintf(&b, "The candidate is named %s; address them by name in the opening question.\n", req.CandidateName)
	}

	resp, err := c.generate(ctx, c.cfg.QuestionModel, generateRequest{
		Contents: []content{{Parts: []part{
			{Text: questionSystemPrompt},
			{Text: b.String()},
		}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}

	text := firstText(resp)
	if text == "" {
		return domain.QuestionSet{}, fmt.Errorf("question generation returned no text")
	}

	var payload questionsPayload
	if err := json.Unmarshal([]byte(cleanJSON(text)), &payload); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("parse question list: %w; raw response: %q", err, text)
	}

	set := domain.QuestionSet{Questions: payload.Questions, Type: interviewType(payload.Type)}
	return set, nil
}

func interviewType(raw string) domain.InterviewType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "behavioral":
		return domain.InterviewTypeBehavioral
	case "technical":
		return domain.InterviewTypeTechnical
	default:
		return domain.InterviewTypeMixed
	}
}
