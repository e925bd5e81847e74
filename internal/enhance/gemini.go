package enhance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Enhancer interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Enhancer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	// Constrain the model to structured JSON output
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":        {Type: genai.TypeString, Description: "A suggested professional filename"},
			"ocrContent":   {Type: genai.TypeString, Description: "The full text content of the document"},
			"qualityScore": {Type: genai.TypeNumber, Description: "Estimated scan quality from 0 to 1"},
		},
		Required: []string{"title", "ocrContent", "qualityScore"},
	}

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// EnhanceDocument analyzes a document image and extracts title, OCR text and quality
func (g *Gemini) EnhanceDocument(imageData []byte, contentType string) (*DocumentData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Prepare image data (convert PDFs and non-PNG formats to PNG)
	finalImageData, _, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix, and after
	// prepareImageData everything is PNG
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(documentPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	data, err := parseDocumentJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing document data: %w", err)
	}

	return data, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
