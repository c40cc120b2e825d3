package prompt

import (
	"fmt"
	"strings"
)

// Render substitutes variables into the prompt's system and user templates.
// Variables use {{key}} placeholders. Missing required variables are an error;
// the system template may be empty for prompts that only carry a user message.
func Render(def *Prompt, vars map[string]string) (system string, user string, err error) {
	if def == nil {
		return "", "", fmt.Errorf("prompt is required")
	}

	for _, required := range def.Config.Input.RequiredVariables {
		if strings.TrimSpace(vars[required]) == "" {
			return "", "", fmt.Errorf("prompt %q missing required variable %q", def.Config.Slug, required)
		}
	}

	system = applyVars(def.Config.SystemTemplate, vars)
	user = applyVars(def.Config.UserTemplate, vars)

	if strings.TrimSpace(system) == "" && strings.TrimSpace(user) == "" {
		return "", "", fmt.Errorf("prompt %q rendered empty", def.Config.Slug)
	}
	return system, user, nil
}

func applyVars(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}
