package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kira2406/Veritas/internal/core"
	"github.com/kira2406/Veritas/internal/models"
)

const extractionSystemPrompt = "You are an expert HR assistant. Your task is to accurately extract all " +
	"relevant information from a job description and structure it into the provided JSON format. " +
	"If a field is not explicitly mentioned, leave it as null or an empty list as per the schema's default."

// jobDescriptionSchema constrains the model's output to the JobDescription
// record, minus job_id which the pipeline assigns.
var jobDescriptionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"company_id":       {Type: genai.TypeString},
		"title":            {Type: genai.TypeString},
		"location":         {Type: genai.TypeString},
		"summary":          {Type: genai.TypeString},
		"experience_level": {Type: genai.TypeString},
		"responsibilities": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"required_skills":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"preferred_skills": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"qualifications":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"technologies":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"benefits":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"title"},
}

var _ core.StructuredExtractor = (*GeminiExtractor)(nil)

// GeminiExtractor performs schema-constrained structured extraction against
// the Gemini API.
type GeminiExtractor struct {
	client    *genai.Client
	modelName string
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiExtractor{client: cl, modelName: modelName}, nil
}

func (g *GeminiExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// ExtractStructured asks the model for a JSON document conforming to the
// job-description schema and coerces it into a record. Transport problems
// surface as *core.ServiceError, non-conforming output as
// *core.SchemaValidationError.
func (g *GeminiExtractor) ExtractStructured(ctx context.Context, text string) (*models.JobDescription, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extractionSystemPrompt)},
	}
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = jobDescriptionSchema

	prompt := "Please extract the following job description:\n\n" + text
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &core.ServiceError{Err: fmt.Errorf("gemini generate: %w", err)}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &core.ServiceError{Err: errors.New("gemini returned no candidates")}
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	raw := b.String()
	if strings.TrimSpace(raw) == "" {
		return nil, &core.ServiceError{Err: errors.New("gemini returned an empty response")}
	}

	return decodeRecord([]byte(raw))
}
