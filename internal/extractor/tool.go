package extractor

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pnct-tools/container-query/internal/domain"
)

const (
	ToolName        = "query_container"
	ToolDescription = "Query container information from PNCT. Use intent='all' to fetch all information when only a container ID is provided."
)

// ToolParametersSchema is the JSON schema of the query_container arguments.
const ToolParametersSchema = `{
  "type": "object",
  "properties": {
    "container_id": {
      "type": "string",
      "description": "Container ID (e.g., ABCU1234567, TCLU9876543)",
      "minLength": 1
    },
    "intent": {
      "type": "string",
      "description": "Intent: status, location, availability, holds, last_free_day, or 'all'",
      "enum": ["status", "location", "availability", "holds", "last_free_day", "all"]
    }
  },
  "required": ["container_id", "intent"]
}`

// SystemInstruction steers a model toward exactly one query_container call.
const SystemInstruction = `You are an assistant that answers questions about shipping containers at the PNCT marine terminal.

1. Extract the container ID from the user's query. Container IDs are usually 11 characters: 4 letters followed by 7 digits (e.g., ABCU1234567, TCLU9876543).
2. Determine the intent:
   - "status": the current status of the container
   - "location": where the container is
   - "availability": whether it can be picked up
   - "holds": any holds on the container
   - "last_free_day": the last free day and demurrage
   - "all": the user gave only a container ID
3. Call the query_container tool with both parameters immediately.
4. After the tool responds, answer with every relevant detail from the data, organized by section. Mention fields that are not available.

Examples:
- "What is the status of container ABCU1234567?" -> container_id="ABCU1234567", intent="status"
- "Where is TCLU9876543?" -> container_id="TCLU9876543", intent="location"
- "Is ABCU1234567 available?" -> container_id="ABCU1234567", intent="availability"
- "Any holds on TCLU9876543?" -> container_id="TCLU9876543", intent="holds"
- "What's the last free day for ABCU1234567?" -> container_id="ABCU1234567", intent="last_free_day"
- "ABCU1234567" -> container_id="ABCU1234567", intent="all"

If the query contains no container ID, ask the user to provide one.`

var (
	toolSchemaOnce sync.Once
	toolSchema     *jsonschema.Schema
	toolSchemaErr  error
)

func compiledToolSchema() (*jsonschema.Schema, error) {
	toolSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(ToolParametersSchema), &doc); err != nil {
			toolSchemaErr = fmt.Errorf("unmarshal tool schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("query_container.json", doc); err != nil {
			toolSchemaErr = fmt.Errorf("add tool schema resource: %w", err)
			return
		}
		toolSchema, toolSchemaErr = c.Compile("query_container.json")
	})
	return toolSchema, toolSchemaErr
}

// ArgumentsError is returned when a model's tool call does not match the
// query_container schema.
type ArgumentsError struct {
	Raw string
	Err error
}

func (e *ArgumentsError) Error() string {
	return fmt.Sprintf("invalid %s arguments %s: %v", ToolName, e.Raw, e.Err)
}

func (e *ArgumentsError) Unwrap() error {
	return e.Err
}

// ParseToolArguments validates raw tool-call arguments against the schema and
// returns the extraction they describe. The container id is upper-cased.
func ParseToolArguments(raw []byte) (Extraction, error) {
	schema, err := compiledToolSchema()
	if err != nil {
		return Extraction{}, err
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Extraction{}, &ArgumentsError{Raw: string(raw), Err: err}
	}
	if err := schema.Validate(payload); err != nil {
		return Extraction{}, &ArgumentsError{Raw: string(raw), Err: err}
	}

	var args struct {
		ContainerID string `json:"container_id"`
		Intent      string `json:"intent"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return Extraction{}, &ArgumentsError{Raw: string(raw), Err: err}
	}
	intent, err := domain.ParseIntent(args.Intent)
	if err != nil {
		return Extraction{}, &ArgumentsError{Raw: string(raw), Err: err}
	}
	return Extraction{
		ContainerID: strings.ToUpper(strings.TrimSpace(args.ContainerID)),
		Intent:      intent,
	}, nil
}

// parseToolArgumentMap is ParseToolArguments for providers that hand back
// already-decoded arguments.
func parseToolArgumentMap(args map[string]any) (Extraction, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Extraction{}, &ArgumentsError{Raw: fmt.Sprint(args), Err: err}
	}
	return ParseToolArguments(raw)
}
