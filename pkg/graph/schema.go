package graph

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// workflowSchema is the JSON Schema every untrusted workflow document must
// satisfy before it is decoded. Semantic checks (probability sums, start and
// end presence, cycles) happen in NewIndex; this only guards shapes and
// ranges.
const workflowSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "nodes", "edges"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "node_type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "node_type": {
            "type": "string",
            "enum": ["start", "end", "human", "api", "async", "batch", "decision", "parallel_gateway", "wait"]
          },
          "description": {"type": "string"},
          "params": {
            "type": "object",
            "properties": {
              "exec_time_mean": {"type": "number", "minimum": 0},
              "exec_time_variance": {"type": "number", "minimum": 0},
              "cost_per_transaction": {"type": "number", "minimum": 0},
              "error_rate": {"type": "number", "minimum": 0, "maximum": 1},
              "drop_off_rate": {"type": "number", "minimum": 0, "maximum": 1},
              "sla_breach_probability": {"type": "number", "minimum": 0, "maximum": 1},
              "conversion_rate": {"type": "number", "minimum": 0, "maximum": 1},
              "parallelization_factor": {"type": "integer", "minimum": 0},
              "queue_delay_mean": {"type": "number", "minimum": 0},
              "queue_delay_variance": {"type": "number", "minimum": 0},
              "capacity_per_hour": {"type": ["number", "null"], "minimum": 0},
              "max_retries": {"type": "integer", "minimum": 0},
              "retry_delay": {"type": "number", "minimum": 0},
              "volume_multiplier": {"type": "number", "minimum": 0}
            }
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"type": "string", "minLength": 1},
          "target": {"type": "string", "minLength": 1},
          "edge_type": {"type": "string", "enum": ["normal", "conditional", "default", "loop"]},
          "probability": {"type": "number", "minimum": 0, "maximum": 1},
          "condition": {"type": "string"}
        }
      }
    }
  }
}`

// ValidateSchema checks a raw workflow document against the embedded JSON
// Schema and returns a descriptive error listing every violation.
func ValidateSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(workflowSchema)
	dataLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("workflow schema validation failed: %w", err)
	}

	if !result.Valid() {
		var issues []string
		for _, issue := range result.Errors() {
			issues = append(issues, issue.String())
		}

		return fmt.Errorf("workflow document is invalid: %s", strings.Join(issues, "; "))
	}

	return nil
}
