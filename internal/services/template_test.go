package services

import "testing"

func TestRenderTemplate(t *testing.T) {
	params := map[string]interface{}{
		"casting": map[string]interface{}{
			"title":  "Summer Campaign",
			"budget": 5000.0,
		},
		"creator": map[string]interface{}{
			"name": "Ada",
		},
	}

	tests := []struct {
		name        string
		template    string
		want        string
		wantMissing int
	}{
		{"plain text untouched", "no placeholders here", "no placeholders here", 0},
		{"single placeholder", "New casting: {{casting.title}}", "New casting: Summer Campaign", 0},
		{"whitespace inside braces", "{{ casting.title }}", "Summer Campaign", 0},
		{"numeric renders without trailing zeros", "budget {{casting.budget}}", "budget 5000", 0},
		{"multiple placeholders", "{{creator.name}} -> {{casting.title}}", "Ada -> Summer Campaign", 0},
		{"missing renders empty", "hello {{casting.owner}}!", "hello !", 1},
		{"mixed present and missing", "{{casting.title}} {{casting.owner}}", "Summer Campaign ", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := RenderTemplate(tt.template, params)
			if got != tt.want {
				t.Errorf("RenderTemplate() = %q, want %q", got, tt.want)
			}
			if len(missing) != tt.wantMissing {
				t.Errorf("missing = %v, want %d entries", missing, tt.wantMissing)
			}
		})
	}
}

func TestRenderTemplateMap(t *testing.T) {
	params := map[string]interface{}{
		"casting": map[string]interface{}{"title": "Shoot"},
	}

	out, missing := RenderTemplateMap(map[string]string{
		"event": "casting_created",
		"title": "{{casting.title}}",
		"owner": "{{casting.owner}}",
	}, params)

	if out["event"] != "casting_created" {
		t.Errorf("static value changed: %q", out["event"])
	}
	if out["title"] != "Shoot" {
		t.Errorf("title = %q", out["title"])
	}
	if out["owner"] != "" {
		t.Errorf("missing placeholder should render empty, got %q", out["owner"])
	}
	if len(missing) != 1 || missing[0] != "casting.owner" {
		t.Errorf("missing = %v", missing)
	}

	if out, missing := RenderTemplateMap(nil, params); out != nil || missing != nil {
		t.Error("nil template map should render nil")
	}
}
