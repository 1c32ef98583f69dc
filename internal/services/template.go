package services

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// RenderTemplate fills {{dot.path}} placeholders from the event parameters.
// Unresolvable placeholders render empty and are returned so the dispatcher
// can record a configuration warning without failing the action.
func RenderTemplate(template string, params map[string]interface{}) (string, []string) {
	if !strings.Contains(template, "{{") {
		return template, nil
	}
	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := lookupPath(params, path)
		if !ok || value == nil {
			missing = append(missing, path)
			return ""
		}
		return stringify(value)
	})
	return rendered, missing
}

// RenderTemplateMap renders every value of a template map, collecting
// unresolved placeholders across all entries.
func RenderTemplateMap(templates map[string]string, params map[string]interface{}) (map[string]string, []string) {
	if len(templates) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(templates))
	var missing []string
	for key, tmpl := range templates {
		rendered, miss := RenderTemplate(tmpl, params)
		out[key] = rendered
		missing = append(missing, miss...)
	}
	return out, missing
}
