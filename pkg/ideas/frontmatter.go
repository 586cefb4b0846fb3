package ideas

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// splitFrontmatter separates a leading block opened and closed by a line consisting solely of
// "---". ok is false when the document has no such block.
func splitFrontmatter(content string) (header, body string, ok bool) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.SplitAfter(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\n") != delimiter {
		return "", content, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\n") == delimiter {
			header = strings.Join(lines[1:i], "")
			body = strings.Join(lines[i+1:], "")
			return header, strings.TrimPrefix(body, "\n"), true
		}
	}
	return "", content, false
}

// decodeFrontmatter parses the header block into v.
func decodeFrontmatter(header string, v any) error {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	if err := yaml.Unmarshal([]byte(header), v); err != nil {
		return fmt.Errorf("invalid frontmatter: %w", err)
	}
	return nil
}

// encodeFrontmatter renders v as a frontmatter block followed by body.
func encodeFrontmatter(v any, body string) ([]byte, error) {
	header, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(header)
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(strings.TrimRight(body, "\n"))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
