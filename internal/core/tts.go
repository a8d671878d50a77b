package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"storyweaver/internal/config"
)

const (
	defaultTTSEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/" + ttsModelName + ":generateContent"
	ttsModelName       = "gemini-2.5-flash-preview-tts"
	ttsVoiceName       = "Kore"
)

// markdownMarkers matches the formatting characters stripped before speech
// synthesis so the narrator does not read asterisks aloud.
var markdownMarkers = regexp.MustCompile("[*_#`\\[\\]]")

type ttsRequest struct {
	Contents         []ttsContent        `json:"contents"`
	GenerationConfig ttsGenerationConfig `json:"generationConfig"`
}

type ttsContent struct {
	Parts []ttsPart `json:"parts"`
}

type ttsPart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *ttsInlineData `json:"inlineData,omitempty"`
}

type ttsInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type ttsGenerationConfig struct {
	ResponseModalities []string        `json:"responseModalities"`
	SpeechConfig       ttsSpeechConfig `json:"speechConfig"`
}

type ttsSpeechConfig struct {
	VoiceConfig ttsVoiceConfig `json:"voiceConfig"`
}

type ttsVoiceConfig struct {
	PrebuiltVoiceConfig ttsPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type ttsPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type ttsResponse struct {
	Candidates []struct {
		Content ttsContent `json:"content"`
	} `json:"candidates"`
}

// GenerateAudio synthesizes narration for the story text in a single fixed
// voice. The returned payload is raw 16-bit little-endian PCM at 24 kHz,
// mono — the exact encoding the playback controller decodes.
func (s *LLMService) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	cleanText := markdownMarkers.ReplaceAllString(text, "")

	reqBody := ttsRequest{
		Contents: []ttsContent{{Parts: []ttsPart{{Text: cleanText}}}},
		GenerationConfig: ttsGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: ttsSpeechConfig{
				VoiceConfig: ttsVoiceConfig{
					PrebuiltVoiceConfig: ttsPrebuiltVoice{VoiceName: ttsVoiceName},
				},
			},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal TTS request: %v", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ttsEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", config.AppConfig.GeminiAPIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: TTS endpoint returned %s", ErrGenerationFailed, resp.Status)
	}

	var parsed ttsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse TTS response: %v", ErrGenerationFailed, err)
	}

	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("%w: failed to decode audio payload: %v", ErrGenerationFailed, err)
				}
				return audio, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no audio payload in response", ErrGenerationFailed)
}
