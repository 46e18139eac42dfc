package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadflowhq/leadflow/pkg/models"
)

func TestInterpolate(t *testing.T) {
	lead := &models.Lead{Name: "Ana", Email: "ana@example.com"}

	tests := []struct {
		name    string
		text    string
		context map[string]string
		want    string
	}{
		{
			name:    "context and builtins",
			text:    "Hi {{name}}, see {{post_title}}",
			context: map[string]string{"post_title": "Launch"},
			want:    "Hi Ana, see Launch",
		},
		{
			name: "email builtin",
			text: "Sent to {{email}}",
			want: "Sent to ana@example.com",
		},
		{
			name: "missing context key is left literal",
			text: "See {{post_url}}",
			want: "See {{post_url}}",
		},
		{
			name:    "repeated tokens all replaced",
			text:    "{{post_title}} / {{post_title}} / {{name}}",
			context: map[string]string{"post_title": "Launch"},
			want:    "Launch / Launch / Ana",
		},
		{
			name:    "context wins before builtins run",
			text:    "{{name}}",
			context: map[string]string{"name": "Override"},
			want:    "Override",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.text, lead, tt.context))
		})
	}
}

func TestInterpolate_DefaultReaderName(t *testing.T) {
	lead := &models.Lead{Email: "reader@example.com"}

	got := Interpolate("Olá {{name}}", lead, nil)
	assert.Equal(t, "Olá "+DefaultReaderName, got)
}
