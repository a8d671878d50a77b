package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"storyweaver/internal/config"
)

func newTTSService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	config.AppConfig.GeminiAPIKey = "test-key"
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &LLMService{
		httpClient:  srv.Client(),
		ttsEndpoint: srv.URL,
	}
}

func ttsReply(data string) ttsResponse {
	return ttsResponse{
		Candidates: []struct {
			Content ttsContent `json:"content"`
		}{
			{Content: ttsContent{Parts: []ttsPart{{InlineData: &ttsInlineData{
				MimeType: "audio/L16;codec=pcm;rate=24000",
				Data:     data,
			}}}}},
		},
	}
}

func TestGenerateAudioDecodesInlinePayload(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xFF, 0x7F}
	svc := newTTSService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		json.NewEncoder(w).Encode(ttsReply(base64.StdEncoding.EncodeToString(pcm)))
	})

	audio, err := svc.GenerateAudio(context.Background(), "سلام دنیا")
	require.NoError(t, err)
	require.Equal(t, pcm, audio)
}

func TestGenerateAudioStripsMarkdown(t *testing.T) {
	var sent ttsRequest
	svc := newTTSService(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &sent))
		json.NewEncoder(w).Encode(ttsReply(base64.StdEncoding.EncodeToString([]byte{0, 0})))
	})

	_, err := svc.GenerateAudio(context.Background(), "**گربه** به _آسمان_ نگاه کرد [و خندید]")
	require.NoError(t, err)

	require.Len(t, sent.Contents, 1)
	require.Len(t, sent.Contents[0].Parts, 1)
	require.Equal(t, "گربه به آسمان نگاه کرد و خندید", sent.Contents[0].Parts[0].Text)
	require.Equal(t, []string{"AUDIO"}, sent.GenerationConfig.ResponseModalities)
	require.Equal(t, "Kore", sent.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestGenerateAudioFailsWithoutPayload(t *testing.T) {
	svc := newTTSService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ttsResponse{})
	})

	_, err := svc.GenerateAudio(context.Background(), "سلام")
	require.True(t, errors.Is(err, ErrGenerationFailed))
}

func TestGenerateAudioFailsOnHTTPError(t *testing.T) {
	svc := newTTSService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := svc.GenerateAudio(context.Background(), "سلام")
	require.True(t, errors.Is(err, ErrGenerationFailed))
}

func TestStripJSONFences(t *testing.T) {
	raw := `{"title":"قصه","content":"متن"}`
	require.Equal(t, raw, stripJSONFences(raw))
	require.Equal(t, raw, stripJSONFences("```json\n"+raw+"\n```"))
	require.Equal(t, raw, stripJSONFences("```\n"+raw+"\n```"))
}
