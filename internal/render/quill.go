package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Quill delta shapes. Inserts are either a string or an embed object
// (image, formula, user mention); attributes carry inline and block
// formatting.
type quillDelta struct {
	Ops []quillOp `json:"ops"`
}

type quillOp struct {
	Insert     json.RawMessage `json:"insert"`
	Attributes map[string]any  `json:"attributes"`
}

// QuillToText renders a Quill delta document as plain text with the same
// light markers HTMLToText uses. A malformed delta renders as empty
// rather than failing the caller.
func QuillToText(raw []byte, width int) string {
	if len(raw) == 0 {
		return ""
	}
	var delta quillDelta
	if err := json.Unmarshal(raw, &delta); err != nil {
		// Some payloads arrive double-encoded as a JSON string.
		var s string
		if err2 := json.Unmarshal(raw, &s); err2 != nil {
			return ""
		}
		if err2 := json.Unmarshal([]byte(s), &delta); err2 != nil {
			return ""
		}
	}

	// Block attributes attach to the newline op terminating the line, so
	// lines are assembled first and prefixed when their newline arrives.
	var out strings.Builder
	var line strings.Builder
	flush := func(prefix string) {
		out.WriteString(prefix)
		out.WriteString(line.String())
		out.WriteString("\n")
		line.Reset()
	}
	for _, op := range delta.Ops {
		if prefix, ok := blockPrefix(op); ok {
			flush(prefix)
			continue
		}
		text := renderOp(op)
		for {
			i := strings.IndexByte(text, '\n')
			if i < 0 {
				line.WriteString(text)
				break
			}
			line.WriteString(text[:i])
			flush("")
			text = text[i+1:]
		}
	}
	if line.Len() > 0 {
		out.WriteString(line.String())
	}
	return WrapText(strings.TrimRight(out.String(), "\n"), width)
}

// blockPrefix returns the line marker for a block-terminating newline op:
// "> " for blockquotes, a four-space indent for code blocks (which also
// exempts the line from rewrapping), "- " for list items.
func blockPrefix(op quillOp) (string, bool) {
	var text string
	if err := json.Unmarshal(op.Insert, &text); err != nil || text != "\n" {
		return "", false
	}
	switch {
	case op.Attributes["blockquote"] != nil:
		return "> ", true
	case op.Attributes["code-block"] != nil:
		return "    ", true
	case op.Attributes["list"] != nil:
		return "- ", true
	}
	return "", false
}

func renderOp(op quillOp) string {
	var text string
	if err := json.Unmarshal(op.Insert, &text); err != nil {
		return renderEmbed(op.Insert)
	}

	if op.Attributes != nil {
		if op.Attributes["code"] != nil {
			text = "`" + text + "`"
		}
		if op.Attributes["italic"] != nil {
			text = "*" + text + "*"
		}
		if op.Attributes["bold"] != nil {
			text = "**" + text + "**"
		}
		if link, ok := op.Attributes["link"].(string); ok && link != "" {
			if strings.TrimSpace(text) != link {
				text = text + " [" + link + "]"
			}
		}
	}
	return text
}

func renderEmbed(raw json.RawMessage) string {
	var embed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &embed); err != nil {
		return ""
	}
	if _, ok := embed["image"]; ok {
		return "[image]"
	}
	if userRaw, ok := embed["user"]; ok {
		var user struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(userRaw, &user) == nil && user.Name != "" {
			return "@" + user.Name
		}
		return "@user"
	}
	if formulaRaw, ok := embed["formula"]; ok {
		var formula string
		if json.Unmarshal(formulaRaw, &formula) == nil {
			return fmt.Sprintf("$%s$", formula)
		}
	}
	return ""
}
