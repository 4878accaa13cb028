package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// MaxTranscriptRunes bounds how much transcript is sent to the model.
const MaxTranscriptRunes = 10000

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// SynthesizeQuiz asks the model for a ten question quiz about the transcript
// and returns the raw response text.
func (s *GeminiService) SynthesizeQuiz(ctx context.Context, transcript string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(buildQuizPrompt(transcript)))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

// TruncateTranscript keeps the first MaxTranscriptRunes characters.
func TruncateTranscript(transcript string) string {
	runes := []rune(transcript)
	if len(runes) <= MaxTranscriptRunes {
		return transcript
	}
	return string(runes[:MaxTranscriptRunes])
}

func buildQuizPrompt(transcript string) string {
	var b strings.Builder

	b.WriteString("Create a quiz based on the following transcript.\n\n")
	b.WriteString("Requirements:\n")
	b.WriteString("- Generate exactly 10 multiple-choice questions.\n")
	b.WriteString("- Each question must have exactly 4 distinct answer options.\n")
	b.WriteString("- Each question must have exactly one correct answer.\n")
	b.WriteString("- Include the correct answer in the 'question_options'.\n")
	b.WriteString("- Do not include explanations, comments, or any text outside the JSON.\n")
	b.WriteString("- Answer in English only.\n")
	b.WriteString("- Return the output strictly in the following JSON format:\n")
	b.WriteString(`
{
  "title": "A concise quiz title based on the topic of the transcript.",
  "description": "A summary of the transcript in no more than 150 characters, without questions or answers.",
  "questions": [
    {
      "question_title": "The question goes here.",
      "question_options": ["Option A", "Option B", "Option C", "Option D"],
      "answer": "The correct answer from the above options"
    }
  ]
}
`)

	b.WriteString("\ntranscript:\n")
	b.WriteString(TruncateTranscript(transcript))
	b.WriteString("\n")

	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
