package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the wait before the first retry; it doubles after each attempt.
	Backoff time.Duration
}

// Client is the financial advisor backed by an OpenAI compatible API.
type Client struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

func New(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	return &Client{
		client:     openai.NewClientWithConfig(config),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
	}
}

func (c *Client) SetModel(model string) {
	c.model = model
}

const correctionsPrompt = `Eres un asesor financiero que ayuda al usuario analizando sus movimientos y sugiriendo correcciones o señalando posibles inexactitudes, como gastos inusualmente altos o discrepancias en los ingresos. También das sugerencias de ahorro personalizadas. La moneda es el Sol peruano (PEN).

Responde solo con JSON que cumpla el esquema. En "corrections", entryId es el id del movimiento señalado.`

var healthSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"corrections": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"entryId": {"type": "string"},
					"reason": {"type": "string"},
					"suggestion": {"type": "string"}
				},
				"required": ["entryId", "reason", "suggestion"],
				"additionalProperties": false
			}
		},
		"savingsSuggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"suggestion": {"type": "string"},
					"area": {"type": "string"}
				},
				"required": ["suggestion", "area"],
				"additionalProperties": false
			}
		}
	},
	"required": ["corrections", "savingsSuggestions"],
	"additionalProperties": false
}`)

// SuggestCorrections flags suspicious entries against the category limits.
func (c *Client) SuggestCorrections(ctx context.Context, entries []models.FinancialEntry, limits map[string]decimal.Decimal) (*models.FinancialHealth, error) {
	payload, err := json.Marshal(struct {
		FinancialEntries []models.FinancialEntry   `json:"financialEntries"`
		SectionLimits    map[string]decimal.Decimal `json:"sectionLimits"`
	}{entries, limits})
	if err != nil {
		return nil, fmt.Errorf("failed to encode entries: %w", err)
	}

	content, err := c.complete(ctx, correctionsPrompt, string(payload), "financial_health", healthSchema)
	if err != nil {
		return nil, err
	}

	health := &models.FinancialHealth{}
	if err := json.Unmarshal([]byte(content), health); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return health, nil
}

const tipsPrompt = `Eres un asesor financiero personal. Analiza la situación financiera del usuario y proporciona consejos de ahorro personalizados y accionables. La moneda es el Sol peruano (PEN).

Considera ingresos, gastos por categoría, metas financieras, saldo actual y próximos pagos. Da al menos 3 consejos, sin frases de introducción ni de cierre.`

var tipsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"savingsTips": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["savingsTips"],
	"additionalProperties": false
}`)

func (c *Client) SavingsTips(ctx context.Context, in models.SavingsTipsInput) ([]string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}

	content, err := c.complete(ctx, tipsPrompt, string(payload), "savings_tips", tipsSchema)
	if err != nil {
		return nil, err
	}

	var out struct {
		SavingsTips []string `json:"savingsTips"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return out.SavingsTips, nil
}

// complete sends one structured-output request, retrying rate limits and
// server errors with exponential backoff.
func (c *Client) complete(ctx context.Context, system, user, schemaName string, schema json.RawMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
		Temperature: 0.3,
	}

	wait := c.backoff
	for attempt := 0; ; attempt++ {
		content, err := c.completeOnce(ctx, req)
		if err == nil {
			return content, nil
		}
		if attempt >= c.maxRetries || !retryable(err) {
			return "", err
		}

		log.Printf("AI request failed (attempt %d), retrying in %s: %v", attempt+1, wait, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (c *Client) completeOnce(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from AI")
	}
	return resp.Choices[0].Message.Content, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return false
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
