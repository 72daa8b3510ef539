package classify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/xxxsen/szurutag/internal/model"
	errs "github.com/xxxsen/szurutag/internal/pkg/errors"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	geminiPrompt = `Describe this image as booru-style tags: one comma-separated line of ` +
		`lowercase tag names with underscores instead of spaces. End the line with a single ` +
		`rating token, one of: general, sensitive, questionable, explicit.`
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type geminiProvider struct {
	apiKey string
	model  string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) TagImage(ctx context.Context, path string, threshold float32) ([]string, model.Safety, error) {
	if p.apiKey == "" {
		return nil, model.SafetyUnrated, errs.ErrUnavailable
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.SafetyUnrated, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, model.SafetyUnrated, err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		p.model,
		[]*genai.Content{{Parts: []*genai.Part{
			{Text: geminiPrompt},
			{InlineData: &genai.Blob{MIMEType: http.DetectContentType(data), Data: data}},
		}}},
		nil,
	)
	if err != nil {
		return nil, model.SafetyUnrated, err
	}
	tags, safety := parseTagLine(resp.Text())
	if len(tags) == 0 && safety == model.SafetyUnrated {
		return nil, model.SafetyUnrated, fmt.Errorf("gemini returned no usable tags")
	}
	return tags, safety, nil
}

func (p *geminiProvider) Close() error {
	return nil
}

// parseTagLine splits a comma-separated tag line and peels a trailing rating
// token off the end when one is present.
func parseTagLine(text string) ([]string, model.Safety) {
	fields := strings.Split(text, ",")
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		f = strings.ReplaceAll(f, " ", "_")
		if f == "" {
			continue
		}
		tags = append(tags, f)
	}
	safety := model.SafetyUnrated
	if len(tags) > 0 {
		if s := model.ParseSafety(tags[len(tags)-1]); s != model.SafetyUnrated {
			safety = s
			tags = tags[:len(tags)-1]
		}
	}
	return tags, safety
}

func createGeminiFactory(args interface{}) (Tagger, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	m := strings.TrimSpace(cfg.Model)
	if m == "" {
		m = defaultGeminiModel
	}
	return &geminiProvider{
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  m,
	}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
