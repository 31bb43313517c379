package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Intent names the agent may return
const (
	IntentGetForecast         = "GetForecast"
	IntentSetNotificationTime = "SetNotificationTime"
	IntentUnsubscribe         = "Unsubscribe"
	IntentGeneralQuery        = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName      string `json:"command_name" jsonschema:"enum=GetForecast,enum=SetNotificationTime,enum=Unsubscribe,enum=GeneralQuery" jsonschema_description:"The command to execute"`
	NotificationTime string `json:"notification_time" jsonschema_description:"Requested notification time in 24h HH:MM format for SetNotificationTime, otherwise empty"`
	UserMessage      string `json:"user_message" jsonschema_description:"A short message to show back to the user in Russian"`
}

// OpenAIService defines the interface for interacting with the OpenAI agent.
type OpenAIService interface {
	InterpretUserQuery(ctx context.Context, userMessage string) (*AgentResponse, error)
}

// openAIServiceImpl implements the OpenAIService interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewOpenAIService creates and initializes a new OpenAIService.
func NewOpenAIService(apiKey string) (OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is empty")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	schema := GenerateSchema[AgentResponse]()

	return &openAIServiceImpl{
		client: client,
		schema: schema,
	}, nil
}

const systemPrompt = `You are the assistant of "Ache-o-Meter", a Telegram bot that warns weather-sensitive people about pressure swings, temperature jumps, humidity extremes, magnetic storms and solar wind surges.

Classify the user's message:
1. The user wants to know how they will feel today or asks for the forecast:
   - command_name = "GetForecast"
2. The user wants to receive the daily forecast at another time of day:
   - command_name = "SetNotificationTime"
   - notification_time = the requested time as HH:MM (24h). If no exact time is given, leave it empty.
3. The user wants to stop receiving forecasts:
   - command_name = "Unsubscribe"
4. Anything else (greetings, small talk, questions about the bot):
   - command_name = "GeneralQuery"
   - user_message: a short friendly answer in Russian, reminding that a location can be shared to subscribe.

For the first three commands user_message is a one-line confirmation in Russian.

Output **strictly** in JSON.`

// InterpretUserQuery sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserQuery(ctx context.Context, userMessage string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing command, notification time and user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})

	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	return parseAgentResponse(chat.Choices[0].Message.Content)
}

func parseAgentResponse(content string) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		log.Printf("Failed to unmarshal OpenAI response: %s\nRaw response: %s", err, content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}
	return &agentResp, nil
}
