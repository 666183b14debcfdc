package flow

import "regexp"

var placeholderPattern = regexp.MustCompile(`{{(\w+)}}`)

// Render substitutes every {{name}} placeholder in the template with the
// mapped value, or the empty string when the key is absent. Rendering never
// fails; there is no escaping and no nesting.
func Render(template string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		return data[match[2:len(match)-2]]
	})
}
