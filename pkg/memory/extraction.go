package memory

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"

	"github.com/mindflow-live/mindflow/pkg/llm"
	"github.com/mindflow-live/mindflow/pkg/types"
)

const extractionSchema = `{
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "summary": {"type": "string"}
        },
        "required": ["name"]
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "name": {"type": "string"},
          "fact": {"type": "string"}
        },
        "required": ["source", "target", "fact"]
      }
    }
  },
  "required": ["entities", "relationships"]
}`

// extractionMessages builds the prompt for joint entity and relationship
// extraction over a single episode.
func extractionMessages(episode types.Episode, existingNames []string) []types.Message {
	sysPrompt := `You are an expert knowledge graph builder that extracts entities and fact triples from spoken transcripts.
1. Extract the significant entities (people, places, organizations, topics, objects) mentioned in the CURRENT TRANSCRIPT.
2. Extract relationships between those entities as fact triples. Each fact must be a standalone sentence a reader can understand without the transcript.
3. Relationship names are SCREAMING_SNAKE_CASE verbs such as WORKS_AT or DISCUSSED.
4. Reuse the exact spelling of a KNOWN ENTITY when the transcript refers to it, even by pronoun or partial name.
5. Treat the REFERENCE TIME as the moment the transcript was spoken.`

	var known string
	if len(existingNames) > 0 {
		known = strings.Join(existingNames, "\n")
	} else {
		known = "(none)"
	}

	userPrompt := fmt.Sprintf(`<KNOWN ENTITIES>
%s
</KNOWN ENTITIES>

<REFERENCE TIME>
%s
</REFERENCE TIME>

<CURRENT TRANSCRIPT>
%s
</CURRENT TRANSCRIPT>

Respond with JSON matching the requested schema. Return empty arrays when the transcript contains no entities or relationships.`,
		known, episode.Reference.Format("2006-01-02T15:04:05Z07:00"), episode.Content)

	return []types.Message{
		llm.NewSystemMessage(sysPrompt),
		llm.NewUserMessage(userPrompt),
	}
}

// extractedEntity tolerates the field names different models emit.
type extractedEntity struct {
	Name       string `json:"name"`
	Entity     string `json:"entity"`
	EntityName string `json:"entity_name"`
	Type       string `json:"type"`
	EntityType string `json:"entity_type"`
	Summary    string `json:"summary"`
}

func (e *extractedEntity) entityName() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Entity != "" {
		return e.Entity
	}
	return e.EntityName
}

func (e *extractedEntity) entityLabel() string {
	if e.Type != "" {
		return e.Type
	}
	return e.EntityType
}

// extractedEdge tolerates the field names different models emit.
type extractedEdge struct {
	Source     string `json:"source"`
	SourceName string `json:"source_entity"`
	Target     string `json:"target"`
	TargetName string `json:"target_entity"`
	Name       string `json:"name"`
	Relation   string `json:"relation"`
	Fact       string `json:"fact"`
}

func (e *extractedEdge) sourceName() string {
	if e.Source != "" {
		return e.Source
	}
	return e.SourceName
}

func (e *extractedEdge) targetName() string {
	if e.Target != "" {
		return e.Target
	}
	return e.TargetName
}

func (e *extractedEdge) relationName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Relation
}

// extractionPayload is the wrapped response shape the prompt asks for.
type extractionPayload struct {
	Entities      []extractedEntity `json:"entities"`
	Relationships []extractedEdge   `json:"relationships"`
	Edges         []extractedEdge   `json:"edges"`
	Facts         []extractedEdge   `json:"facts"`
}

func (p *extractionPayload) edgeList() []extractedEdge {
	if len(p.Relationships) > 0 {
		return p.Relationships
	}
	if len(p.Edges) > 0 {
		return p.Edges
	}
	return p.Facts
}

// parseExtraction decodes the LLM response, repairing malformed JSON and
// trimming surrounding prose when the model decorates its output.
func parseExtraction(responseContent string) (*extractionPayload, error) {
	repaired, _ := jsonrepair.JSONRepair(responseContent)
	if repaired != "" {
		responseContent = repaired
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(responseContent), &payload); err == nil {
		return &payload, nil
	}

	jsonStart := strings.Index(responseContent, "{")
	jsonEnd := strings.LastIndex(responseContent, "}")
	if jsonStart != -1 && jsonEnd > jsonStart {
		if err := json.Unmarshal([]byte(responseContent[jsonStart:jsonEnd+1]), &payload); err == nil {
			return &payload, nil
		}
	}

	return nil, fmt.Errorf("unparseable extraction response")
}
