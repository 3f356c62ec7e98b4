package graphflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"collections/internal/ai"
)

const maxKeywords = 12

var (
	ErrNotArray   = errors.New("model reply is not a json array")
	ErrNoKeywords = errors.New("model returned no keywords")
)

type VisionModel interface {
	Vision(ctx context.Context, in ai.VisionRequest) (string, error)
}

type KeywordInput struct {
	Title    string
	Artist   string
	ImageURL string
}

type keywordPrompt struct {
	Text     string
	ImageURL string
}

// KeywordExtractor runs the prompt -> vision -> parser graph for one artwork.
type KeywordExtractor struct {
	model    VisionModel
	runnable compose.Runnable[KeywordInput, []string]
}

func NewKeywordExtractor(model VisionModel) (*KeywordExtractor, error) {
	e := &KeywordExtractor{model: model}

	graph := compose.NewGraph[KeywordInput, []string]()
	if err := graph.AddLambdaNode("prompt", compose.InvokableLambda(promptNode)); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("vision", compose.InvokableLambda(e.visionNode)); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("parser", compose.InvokableLambda(parserNode)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("prompt", "vision"); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("vision", "parser"); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("parser", compose.END); err != nil {
		return nil, err
	}

	runnable, err := graph.Compile(context.Background(), compose.WithGraphName("artwork_keywords"))
	if err != nil {
		return nil, err
	}
	e.runnable = runnable
	return e, nil
}

func (e *KeywordExtractor) Extract(ctx context.Context, input KeywordInput) ([]string, error) {
	if e == nil || e.runnable == nil {
		return nil, errors.New("keyword graph not initialized")
	}
	return e.runnable.Invoke(ctx, input)
}

func promptNode(ctx context.Context, input KeywordInput) (keywordPrompt, error) {
	if strings.TrimSpace(input.ImageURL) == "" {
		return keywordPrompt{}, errors.New("image url required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Untitled"
	}
	artist := strings.TrimSpace(input.Artist)
	if artist == "" {
		artist = "unknown"
	}
	text := fmt.Sprintf("You are an expert art historian. Analyze the artwork titled %q by %s.\n"+
		"Return exactly 8-12 unique, specific, descriptive keywords (no generics like \"art\" or \"painting\").\n"+
		"Focus on: visual elements, colors, style period, composition, mood, subjects, technique.\n"+
		"Return only a JSON array of strings, with no prose and no code fences. "+
		"Example: [\"sepia photograph\", \"formal attire\", \"railway station\", \"19th century portrait\"]",
		title, artist)
	return keywordPrompt{Text: text, ImageURL: strings.TrimSpace(input.ImageURL)}, nil
}

func (e *KeywordExtractor) visionNode(ctx context.Context, p keywordPrompt) (string, error) {
	if e.model == nil {
		return "", ai.ErrNotConfigured
	}
	return e.model.Vision(ctx, ai.VisionRequest{
		Prompt:      p.Text,
		ImageURL:    p.ImageURL,
		MaxTokens:   220,
		Temperature: 0.35,
	})
}

func parserNode(ctx context.Context, raw string) ([]string, error) {
	return parseKeywords(raw)
}

// parseKeywords accepts a JSON array of strings, possibly wrapped in a code
// fence. Anything else is an error.
func parseKeywords(raw string) ([]string, error) {
	raw = stripCodeFence(raw)

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	items, ok := decoded.([]any)
	if !ok {
		return nil, ErrNotArray
	}

	words := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			words = append(words, s)
		}
	}
	out := normalizeList(words)
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	if len(out) == 0 {
		return nil, ErrNoKeywords
	}
	return out, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// drop the info string, e.g. ```json
	if i := strings.IndexAny(text, "\n["); i >= 0 && text[i] == '\n' {
		text = text[i+1:]
	} else if i >= 0 {
		text = text[i:]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// normalizeList trims, drops empties and exact duplicates. Commas become spaces
// since keywords are stored comma-joined.
func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, item := range items {
		v := strings.TrimSpace(strings.ReplaceAll(item, ",", " "))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
