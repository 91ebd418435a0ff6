package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"

	geminiSystemPrompt = `You are an equity research assistant. Given a stock quote, reply with a single JSON object:
{"recommendation":"BUY|SELL|HOLD","targetPrice":number,"analystCount":number,"strongBuy":number,"buy":number,"hold":number,"sell":number,"strongSell":number,"rationale":string}
Do not include any other text.`
)

// GeminiOptions configures a GeminiAnalyst.
type GeminiOptions struct {
	APIKey string
	Model  string
	Logger *slog.Logger
	Now    func() time.Time
}

// GeminiAnalyst asks a Gemini model for a recommendation based on the
// current quote from Source.
type GeminiAnalyst struct {
	source Source
	apiKey string
	model  string
	logger *slog.Logger
	now    func() time.Time
}

var _ Analyst = (*GeminiAnalyst)(nil)

// NewGeminiAnalyst returns an analyst backed by the Gemini API.
func NewGeminiAnalyst(source Source, opts GeminiOptions) *GeminiAnalyst {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &GeminiAnalyst{
		source: source,
		apiKey: strings.TrimSpace(opts.APIKey),
		model:  model,
		logger: logger,
		now:    now,
	}
}

// Analysis fetches a quote for symbol and asks the model to rate it.
func (g *GeminiAnalyst) Analysis(ctx context.Context, symbol string) (Analysis, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Analysis{}, fmt.Errorf("analysis: %w", ErrUnknownSymbol)
	}
	quote, err := g.source.Quote(ctx, symbol)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to fetch quote for analysis: %w", err)
	}
	prompt, err := buildAnalysisPrompt(quote)
	if err != nil {
		return Analysis{}, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("create gemini client failed: %w: %w", ErrDataUnavailable, err)
	}
	g.logger.Debug("gemini analysis request", "symbol", symbol, "model", g.model)
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: geminiSystemPrompt}},
		},
		Temperature:      genai.Ptr(float32(0.2)),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("gemini generate content failed: %w: %w", ErrDataUnavailable, err)
	}
	return parseAnalysisResponse(symbol, resp.Text(), g.now())
}

func buildAnalysisPrompt(q Quote) (string, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("failed to encode quote: %w", err)
	}
	return fmt.Sprintf("Rate %s (%s) using this quote:\n%s", q.Symbol, q.Name, payload), nil
}

type analysisModelResponse struct {
	Recommendation string  `json:"recommendation"`
	TargetPrice    float64 `json:"targetPrice"`
	AnalystCount   int     `json:"analystCount"`
	StrongBuy      int     `json:"strongBuy"`
	Buy            int     `json:"buy"`
	Hold           int     `json:"hold"`
	Sell           int     `json:"sell"`
	StrongSell     int     `json:"strongSell"`
	Rationale      string  `json:"rationale"`
}

func parseAnalysisResponse(symbol, content string, now time.Time) (Analysis, error) {
	cleaned := cleanupModelJSON(content)
	if cleaned == "" {
		return Analysis{}, fmt.Errorf("%w: model response is empty", ErrDataUnavailable)
	}
	var parsed analysisModelResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Analysis{}, fmt.Errorf("%w: model returned invalid JSON: %w", ErrDataUnavailable, err)
	}

	rec := strings.ToUpper(strings.TrimSpace(parsed.Recommendation))
	switch rec {
	case RecommendationBuy, RecommendationSell, RecommendationHold:
	default:
		rec = RecommendationHold
	}
	count := parsed.AnalystCount
	if votes := parsed.StrongBuy + parsed.Buy + parsed.Hold + parsed.Sell + parsed.StrongSell; count < votes {
		count = votes
	}
	return Analysis{
		Symbol:         symbol,
		Recommendation: rec,
		TargetPrice:    round2(parsed.TargetPrice),
		AnalystCount:   count,
		StrongBuy:      parsed.StrongBuy,
		Buy:            parsed.Buy,
		Hold:           parsed.Hold,
		Sell:           parsed.Sell,
		StrongSell:     parsed.StrongSell,
		Rationale:      strings.TrimSpace(parsed.Rationale),
		LastUpdated:    now.UTC(),
	}, nil
}

func cleanupModelJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			trimmed = strings.Join(lines, "\n")
		}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}
	return strings.TrimSpace(trimmed)
}
