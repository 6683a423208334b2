// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// CODE BLOCK HIGHLIGHTING
// =============================================================================

// HighlightCodeBlocks finds fenced code blocks in markdown text and applies
// terminal syntax highlighting to them, leaving the rest untouched. Used by
// the plain (non-TUI) mode, where glamour is not in play.
func HighlightCodeBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	var block []string
	var lang string
	inBlock := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				out = append(out, highlightCode(strings.Join(block, "\n"), lang))
				block = nil
				inBlock = false
			} else {
				lang = strings.TrimPrefix(trimmed, "```")
				inBlock = true
			}
			continue
		}
		if inBlock {
			block = append(block, line)
		} else {
			out = append(out, line)
		}
	}
	// Unclosed fence: emit what we have, highlighted.
	if inBlock && len(block) > 0 {
		out = append(out, highlightCode(strings.Join(block, "\n"), lang))
	}
	return strings.Join(out, "\n")
}

// highlightCode applies syntax highlighting to code using the chroma library.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
