package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

const transcribePrompt = `You are an expert interview coach and transcriber.
You will receive a series of interview questions, each followed by the candidate's recorded answer as raw PCM audio (or a marker when no audio was recorded).
Transcribe the answers VERBATIM and reconstruct the conversation as alternating AI and User turns.
Analyze the candidate's confidence, clarity, pace, and tone across all answers.
Respond ONLY with a JSON object of the form:
{"transcript": [{"speaker": "AI" | "User", "text": "..."}], "audioAnalysis": {"confidenceScore": 0-100, "clarityScore": 0-100, "pace": "...", "tone": "...", "feedback": "..."}}`

const contentPrompt = `You are an expert technical interviewer. Analyze the following interview transcript for content quality.
For each question-answer pair, extract the user's answer verbatim, score it, provide feedback, and write an improved answer.
Respond ONLY with a JSON object of the form:
{"overallScore": 0-100, "strengths": ["..."], "improvements": ["..."], "questionFeedback": [{"question": "...", "userAnswer": "...", "score": 0-100, "feedback": "...", "improvedAnswer": "..."}]}`

type transcribePayload struct {
	Transcript []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"transcript"`
	AudioAnalysis domain.AudioAnalysis `json:"audioAnalysis"`
}

// Transcribe reconstructs the conversation from the ordered question/answer
// pairs and scores the audio characteristics of the answers.
func (c *Client) Transcribe(ctx context.Context, questions []string, answers []domain.AnswerSegment) (ports.TranscriptionResult, error) {
	mime := fmt.Sprintf("audio/pcm;rate=%d", c.cfg.CaptureRate)

	parts := []part{{Text: transcribePrompt}}
	for i, question := range questions {
		parts = append(parts, part{Text: fmt.Sprintf("Question %d: %s", i+1, question)})
		if i < len(answers) && len(answers[i].Data) > 0 {
			parts = append(parts, part{Text: fmt.Sprintf("Answer %d Audio:", i+1)})
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: mime,
				Data:     base64.StdEncoding.EncodeToString(answers[i].Data),
			}})
		} else {
			parts = append(parts, part{Text: fmt.Sprintf("Answer %d: [No Audio Recorded]", i+1)})
		}
	}

	resp, err := c.generate(ctx, c.cfg.TranscribeModel, generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return ports.TranscriptionResult{}, err
	}

	text := firstText(resp)
	if text == "" {
		return ports.TranscriptionResult{}, fmt.Errorf("transcription returned no text")
	}

	var payload transcribePayload
	if err := json.Unmarshal([]byte(cleanJSON(text)), &payload); err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("parse transcription result: %w", err)
	}

	result := ports.TranscriptionResult{AudioAnalysis: payload.AudioAnalysis}
	for _, item := range payload.Transcript {
		speaker := domain.SpeakerUser
		if strings.EqualFold(item.Speaker, string(domain.SpeakerAI)) {
			speaker = domain.SpeakerAI
		}
		result.Transcript = append(result.Transcript, domain.TranscriptItem{Speaker: speaker, Text: item.Text})
	}
	return result, nil
}

// AnalyzeContent scores answer content quality from a full transcript.
func (c *Client) AnalyzeContent(ctx context.Context, transcript []domain.TranscriptItem) (domain.ContentAnalysis, error) {
	var conversation strings.Builder
	for _, item := range transcript {
		fmt.Fprintf(&conversation, "%s: %s\n\n", item.Speaker, item.Text)
	}

	resp, err := c.generate(ctx, c.cfg.AnalysisModel, generateRequest{
		Contents: []content{{Parts: []part{
			{Text: contentPrompt},
			{Text: "TRANSCRIPT:\n" + conversation.String()},
		}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return domain.ContentAnalysis{}, err
	}

	text := firstText(resp)
	if text == "" {
		return domain.ContentAnalysis{}, fmt.Errorf("content analysis returned no text")
	}

	var result domain.ContentAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		return domain.ContentAnalysis{}, fmt.Errorf("parse content analysis result: %w", err)
	}
	return result, nil
}
