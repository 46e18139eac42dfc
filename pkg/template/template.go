// Package template provides {{token}} interpolation for message content.
//
// Tokens are literal: unresolved {{keys}} are left in place rather than
// erroring, so a typo in a funnel node degrades to visible text instead of
// halting an execution mid-graph.
package template

import (
	"strings"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// DefaultReaderName substitutes {{name}} for leads captured without a name.
const DefaultReaderName = "Leitor"

// Interpolate replaces {{key}} tokens from the execution context first, then
// the built-in {{name}} and {{email}} tokens from the lead.
func Interpolate(text string, lead *models.Lead, context map[string]string) string {
	out := text

	for key, value := range context {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}

	name := lead.Name
	if name == "" {
		name = DefaultReaderName
	}

	out = strings.ReplaceAll(out, "{{name}}", name)
	out = strings.ReplaceAll(out, "{{email}}", lead.Email)

	return out
}
