package funnel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// ErrInvalidFunnel wraps all graph and node-data validation failures
// surfaced at save time.
var ErrInvalidFunnel = errors.New("invalid funnel definition")

// Per-type node data schemas. Validation happens at save time so the
// engine never has to defend against malformed payloads mid-sweep.
var nodeDataSchemas = map[models.NodeType]*gojsonschema.Schema{}

func init() {
	raw := map[models.NodeType]string{
		models.NodeTypeEmail: `{
			"type": "object",
			"properties": {
				"subject": {"type": "string", "maxLength": 500},
				"content": {"type": "string"}
			}
		}`,
		models.NodeTypeWhatsApp: `{
			"type": "object",
			"properties": {
				"wa_template_id": {"type": "string"},
				"wa_template_title": {"type": "string"},
				"send_time": {"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
			}
		}`,
		models.NodeTypeDelay: `{
			"type": "object",
			"properties": {
				"hours": {"type": "integer", "minimum": 1, "maximum": 8760}
			}
		}`,
		models.NodeTypeCondition: `{
			"type": "object",
			"properties": {
				"condition_target": {"type": "string"},
				"condition_operator": {"enum": ["contains", "not_contains"]},
				"condition_value": {"type": "string"}
			}
		}`,
	}

	for nodeType, schemaJSON := range raw {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
		if err != nil {
			panic(fmt.Sprintf("invalid node data schema for %s: %v", nodeType, err))
		}

		nodeDataSchemas[nodeType] = schema
	}
}

// ValidateFunnel checks a funnel definition for structural soundness:
// unique node ids, no dangling edge or start references, no cycles, and
// per-type node data shapes. An empty StartNodeID is allowed — such a
// funnel is simply not runnable.
func ValidateFunnel(funnel *models.Funnel) error {
	var issues []string

	nodesByID := make(map[string]*models.FunnelNode, len(funnel.Nodes))

	for _, node := range funnel.Nodes {
		if node.ID == "" {
			issues = append(issues, "node with empty id")

			continue
		}

		if _, dup := nodesByID[node.ID]; dup {
			issues = append(issues, fmt.Sprintf("duplicate node id %q", node.ID))

			continue
		}

		nodesByID[node.ID] = node
	}

	if funnel.StartNodeID != "" {
		if _, ok := nodesByID[funnel.StartNodeID]; !ok {
			issues = append(issues, fmt.Sprintf("start node %q does not exist", funnel.StartNodeID))
		}
	}

	for _, node := range funnel.Nodes {
		for _, ref := range []*string{node.NextNodeID, node.TrueNodeID, node.FalseNodeID} {
			if ref == nil {
				continue
			}

			if _, ok := nodesByID[*ref]; !ok {
				issues = append(issues, fmt.Sprintf("node %q references missing node %q", node.ID, *ref))
			}
		}

		issues = append(issues, validateNodeData(node)...)
	}

	if cycle := findCycle(funnel.Nodes, nodesByID); cycle != "" {
		issues = append(issues, fmt.Sprintf("cycle detected through node %q", cycle))
	}

	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFunnel, strings.Join(issues, "; "))
	}

	return nil
}

func validateNodeData(node *models.FunnelNode) []string {
	schema, ok := nodeDataSchemas[node.Type]
	if !ok {
		return nil
	}

	payload, err := json.Marshal(node.Data)
	if err != nil {
		return []string{fmt.Sprintf("node %q: unserializable data: %v", node.ID, err)}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return []string{fmt.Sprintf("node %q: %v", node.ID, err)}
	}

	var issues []string

	for _, violation := range result.Errors() {
		issues = append(issues, fmt.Sprintf("node %q: %s", node.ID, violation.String()))
	}

	return issues
}

// findCycle runs an iterative three-color DFS over every node's outgoing
// edges and returns a node id on the first cycle found, or "".
func findCycle(nodes []*models.FunnelNode, nodesByID map[string]*models.FunnelNode) string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)

	colors := make(map[string]int, len(nodes))

	var visit func(id string) string

	visit = func(id string) string {
		node, ok := nodesByID[id]
		if !ok {
			return ""
		}

		colors[id] = gray

		for _, ref := range []*string{node.NextNodeID, node.TrueNodeID, node.FalseNodeID} {
			if ref == nil {
				continue
			}

			switch colors[*ref] {
			case gray:
				return *ref
			case white:
				if found := visit(*ref); found != "" {
					return found
				}
			}
		}

		colors[id] = black

		return ""
	}

	for _, node := range nodes {
		if colors[node.ID] == white {
			if found := visit(node.ID); found != "" {
				return found
			}
		}
	}

	return ""
}
