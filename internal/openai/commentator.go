package openai

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const systemPrompt = `You are a portfolio analyst commenting on a backtest of an equal-weighted stock portfolio against its benchmark index.
You will receive plain-text results: total return and annualized volatility per asset, for the benchmark and for the portfolio, and optionally the outcome of an initial contribution.
Write at most five short sentences: how the portfolio compared with the benchmark, which assets drove the result, and what the volatility says about the risk taken.
Do not give buy or sell recommendations. Do not invent numbers that are not in the results.`

// maxReportLen caps the prompt for very wide selections.
const maxReportLen = 4000

type Commentator struct {
	cli   oa.Client
	model string
}

func NewCommentator(apiKey, model string, opts ...option.RequestOption) *Commentator {
	if model == "" {
		model = string(shared.ChatModelGPT4oMini)
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model}
}

// Comment asks the model for a short commentary on a simulation report.
func (c *Commentator) Comment(ctx context.Context, report string) (string, error) {
	report = strings.TrimSpace(report)
	if report == "" {
		return "", errors.New("empty report")
	}
	report = truncate(report, maxReportLen)

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage("Simulation results:\n" + report),
		},
		MaxTokens:   oa.Int(400),
		Temperature: oa.Float(0.3),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
