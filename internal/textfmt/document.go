package textfmt

import (
	"bufio"
	"fmt"
	"strings"

	iast "idpgo/internal/ast"
	"idpgo/internal/structure"
)

// Document is everything cmd/idpgo needs to run one inference call,
// read from a single ".idpgo" text file.
type Document struct {
	Vocabulary *iast.Vocabulary
	Structure  *structure.Structure
	Theory     *iast.Theory
}

// ParseDocument reads src, a sequence of
//
//	VOCABULARY <name>
//	...
//	END
//
//	STRUCTURE <name> OVER <vocabName>
//	...
//	END
//
//	THEORY <name> OVER <vocabName>
//	...
//	END
//
// blocks (in that order — a structure or theory section needs its
// vocabulary already parsed), and dispatches each block body to
// ParseVocabulary, ParseStructure or ParseTheory. Exactly one
// VOCABULARY block is expected; STRUCTURE is optional (an absent one
// leaves Document.Structure a fully-unknown structure built by
// structure.NewStructure).
func ParseDocument(src string) (*Document, error) {
	sections, err := splitSections(src)
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	for _, sec := range sections {
		switch sec.kind {
		case "VOCABULARY":
			if doc.Vocabulary != nil {
				return nil, fmt.Errorf("textfmt: document: only one VOCABULARY block is supported")
			}
			v, err := ParseVocabulary(sec.name, sec.body)
			if err != nil {
				return nil, err
			}
			doc.Vocabulary = v
		case "STRUCTURE":
			if doc.Vocabulary == nil || sec.over != doc.Vocabulary.Name {
				return nil, fmt.Errorf("textfmt: document: STRUCTURE %s OVER %s: no such vocabulary parsed yet", sec.name, sec.over)
			}
			s, err := ParseStructure(doc.Vocabulary, sec.body)
			if err != nil {
				return nil, err
			}
			doc.Structure = s
		case "THEORY":
			if doc.Vocabulary == nil || sec.over != doc.Vocabulary.Name {
				return nil, fmt.Errorf("textfmt: document: THEORY %s OVER %s: no such vocabulary parsed yet", sec.name, sec.over)
			}
			t, err := ParseTheory(doc.Vocabulary, sec.name, sec.body)
			if err != nil {
				return nil, err
			}
			doc.Theory = t
		default:
			return nil, fmt.Errorf("textfmt: document: unknown section kind %q", sec.kind)
		}
	}
	if doc.Vocabulary == nil {
		return nil, fmt.Errorf("textfmt: document: missing VOCABULARY block")
	}
	if doc.Structure == nil {
		doc.Structure = structure.NewStructure(doc.Vocabulary)
	}
	return doc, nil
}

type section struct {
	kind, name, over, body string
}

// splitSections is a line scanner, deliberately simpler than the
// lexer.go tokenizer: a STRUCTURE block's body must reach
// ParseStructure byte-for-byte as mangle source, so section splitting
// cannot itself risk mangling (pun noted) its tokens.
func splitSections(src string) ([]section, error) {
	var out []section
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cur *section
	var body strings.Builder
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if cur == nil {
			if trimmed == "" || strings.HasPrefix(trimmed, "//") {
				continue
			}
			kind, name, over, err := parseSectionHeader(trimmed, lineNo)
			if err != nil {
				return nil, err
			}
			cur = &section{kind: kind, name: name, over: over}
			body.Reset()
			continue
		}
		if trimmed == "END" {
			cur.body = body.String()
			out = append(out, *cur)
			cur = nil
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("textfmt: document: %w", err)
	}
	if cur != nil {
		return nil, fmt.Errorf("textfmt: document: unterminated %s block %q (missing END)", cur.kind, cur.name)
	}
	return out, nil
}

func parseSectionHeader(line string, lineNo int) (kind, name, over string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", "", fmt.Errorf("textfmt: document: line %d: malformed section header %q", lineNo, line)
	}
	kind = fields[0]
	name = fields[1]
	switch kind {
	case "VOCABULARY":
		if len(fields) != 2 {
			return "", "", "", fmt.Errorf("textfmt: document: line %d: VOCABULARY takes only a name", lineNo)
		}
		return kind, name, "", nil
	case "STRUCTURE", "THEORY":
		if len(fields) != 4 || fields[2] != "OVER" {
			return "", "", "", fmt.Errorf("textfmt: document: line %d: expected %q <name> OVER <vocabulary>", lineNo, kind)
		}
		return kind, name, fields[3], nil
	default:
		return "", "", "", fmt.Errorf("textfmt: document: line %d: unknown section kind %q", lineNo, kind)
	}
}
