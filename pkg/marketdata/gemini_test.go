package marketdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResponse(t *testing.T) {
	content := "```json\n{\"recommendation\":\"buy\",\"targetPrice\":210.456,\"analystCount\":3,\"strongBuy\":2,\"buy\":1,\"hold\":1,\"rationale\":\" solid \"}\n```"
	a, err := parseAnalysisResponse("AAPL", content, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, RecommendationBuy, a.Recommendation)
	assert.Equal(t, 210.46, a.TargetPrice)
	assert.Equal(t, 4, a.AnalystCount)
	assert.Equal(t, "solid", a.Rationale)
	assert.Equal(t, fixedNow, a.LastUpdated)
}

func TestParseAnalysisResponseUnknownRecommendation(t *testing.T) {
	a, err := parseAnalysisResponse("MSFT", `noise {"recommendation":"accumulate"} trailing`, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, RecommendationHold, a.Recommendation)
}

func TestParseAnalysisResponseInvalid(t *testing.T) {
	_, err := parseAnalysisResponse("MSFT", "", fixedNow)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = parseAnalysisResponse("MSFT", "{not json}", fixedNow)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt, err := buildAnalysisPrompt(Quote{Symbol: "TSLA", Name: "Tesla Inc.", Price: 180})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "Rate TSLA (Tesla Inc.)"))
	assert.Contains(t, prompt, `"price":180`)
}
