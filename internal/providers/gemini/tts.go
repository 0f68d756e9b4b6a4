package gemini

import (
	"context"
	"encoding/base64"
	"fmt"

	"prepmic/internal/domain"
)

// TTSSampleRate is the fixed output rate of Gemini speech synthesis:
// single-channel s16le PCM at 24 kHz.
const TTSSampleRate = 24000

func voiceName(voice domain.Voice) string {
	if voice == domain.VoiceMale {
		return "Puck"
	}
	return "Kore"
}

// Synthesize renders question text into raw PCM audio ready for playback.
func (c *Client) Synthesize(ctx context.Context, text string, voice domain.Voice) ([]byte, error) {
	prompt := "You are an interviewer interviewing a candidate. Ask/Say this in a professional and polite tone: " + text

	resp, err := c.generate(ctx, c.cfg.TTSModel, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voiceName(voice)},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	audio := firstInlineData(resp)
	if audio == nil {
		return nil, fmt.Errorf("speech synthesis returned no audio data")
	}

	pcm, err := base64.StdEncoding.DecodeString(audio.Data)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}
	return pcm, nil
}
