package template

import "strings"

// Render replaces every {{name}} placeholder of fs in content with the
// filled value, else the field default, else nothing. Placeholders without
// a field are left as they are.
func Render(content string, fs []Field, values map[string]string) string {
	pairs := make([]string, 0, 2*len(fs))
	for _, f := range fs {
		v := values[f.Name]
		if v == "" && f.Default.Value != nil {
			v = f.Default.String()
		}
		pairs = append(pairs, "{{"+f.Name+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}
