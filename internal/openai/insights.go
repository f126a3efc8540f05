package openai

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"portfolioDashboard/internal/chart"
)

const systemPrompt = `You are a portfolio analyst writing for a chat message. You receive the normalized performance of a portfolio (percent change since the first day) and optionally of a benchmark, plus summary metrics.

Your response must follow this exact structure:

**Performance:**
[One or two sentences on the absolute and relative result]

**Risk:**
[Volatility and drawdown in plain words]

**Notes:**
[Up to three bullets worth watching]

Guidelines:
- Use only the numbers given, never invent data
- Ratios are given as fractions, present them as percentages
- No investment advice, no ticker recommendations
- Keep it under 150 words`

type Insights struct {
	cli oa.Client
}

func NewInsights(apiKey string, opts ...option.RequestOption) *Insights {
	client := oa.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Insights{cli: client}
}

// Portfolio asks for a short commentary on a performance dataset.
func (g *Insights) Portfolio(ctx context.Context, ds chart.RenderDataset) (string, error) {
	if ds.Empty() {
		return "No performance data to comment on.", nil
	}
	resp, err := g.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(buildPrompt(ds)),
		},
		MaxTokens: oa.Int(600),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildPrompt summarises the last present value of each trace and the stats.
func buildPrompt(ds chart.RenderDataset) string {
	var b strings.Builder
	title := sanitize(ds.Title)
	if title == "" {
		title = "Portfolio"
	}
	fmt.Fprintf(&b, "Title: %s\n", title)
	if n := len(ds.Timeline); n > 0 {
		fmt.Fprintf(&b, "Period: %s to %s (%d points)\n",
			ds.Timeline[0].Format("2006-01-02"), ds.Timeline[n-1].Format("2006-01-02"), n)
	}
	for _, tr := range ds.Traces {
		last, ok := lastPresent(tr.Values)
		if !ok {
			fmt.Fprintf(&b, "%s: no data\n", sanitize(tr.Label))
			continue
		}
		fmt.Fprintf(&b, "%s: %+.2f%% since start\n", sanitize(tr.Label), last)
	}
	if len(ds.Stats) > 0 {
		b.WriteString("Metrics:\n")
		for _, k := range slices.Sorted(maps.Keys(ds.Stats)) {
			fmt.Fprintf(&b, "- %s: %.4f\n", k, ds.Stats[k])
		}
	}
	return b.String()
}

func lastPresent(vals []chart.Value) (float64, bool) {
	for i := len(vals) - 1; i >= 0; i-- {
		if v, ok := vals[i].Get(); ok {
			return v, true
		}
	}
	return 0, false
}

var (
	reMarkdownImg = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`) // ![alt](url)
	reURL         = regexp.MustCompile(`https?://\S+`)
)

// sanitize strips links and caps length of backend-provided text before it reaches the prompt.
func sanitize(s string) string {
	text := reMarkdownImg.ReplaceAllString(s, "")
	text = reURL.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
