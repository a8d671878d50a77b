package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"storyweaver/internal/config"
)

// ErrGenerationFailed reports that the remote model returned nothing usable:
// an empty response, an unparseable one, or a transport failure.
var ErrGenerationFailed = errors.New("story generation failed")

const (
	defaultStoryModelName = "gemini-1.5-flash-latest"

	storySystemInstruction = "You are a professional Persian storyteller (قصه گو). " +
		"Your goal is to write engaging, creative, and age-appropriate stories in the Persian (Farsi) language. " +
		"Strictly follow the user's requirements regarding genre, topic, and age group. " +
		"Return the response as JSON with exactly two keys: \"title\", a creative Persian title for the story, " +
		"and \"content\", the full body of the story in Persian, formatted with markdown " +
		"(paragraphs, bold text for emphasis)."
)

type LLMService struct {
	client *genai.Client

	// TTS goes over the plain REST endpoint; the typed client has no
	// speech-synthesis surface.
	httpClient  *http.Client
	ttsEndpoint string
}

func NewLLMService() *LLMService {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &LLMService{
		client:      client,
		httpClient:  http.DefaultClient,
		ttsEndpoint: defaultTTSEndpoint,
	}
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

// GenerateStory asks the model for a {title, content} pair matching the
// request. The structured-output schema pins the response to exactly those
// two string fields.
func (s *LLMService) GenerateStory(ctx context.Context, opts StoryOptions) (*Draft, error) {
	model := s.client.GenerativeModel(defaultStoryModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(storySystemInstruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":   {Type: genai.TypeString},
				"content": {Type: genai.TypeString},
			},
			Required: []string{"title", "content"},
		},
	}

	userPrompt := fmt.Sprintf(
		"موضوع داستان: %s\nژانر: %s\nگروه سنی: %s\nطول داستان: %s\n\nلطفا یک داستان جذاب و آموزنده بنویس.",
		opts.Prompt, opts.Genre, opts.AgeGroup, lengthHints[opts.Length])

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrGenerationFailed)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &draft); err != nil {
		return nil, fmt.Errorf("%w: response is not a {title, content} object: %v", ErrGenerationFailed, err)
	}
	if draft.Title == "" || draft.Content == "" {
		return nil, fmt.Errorf("%w: response is missing title or content", ErrGenerationFailed)
	}
	return &draft, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	return strings.TrimSpace(b.String())
}

// stripJSONFences removes a markdown code fence the model sometimes wraps
// around its JSON output despite the response MIME type.
func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
