// Package manifest projects a Turtle-syntax ontology field into a typed
// FieldManifest (C4), and supports structural edits to the retained
// document text that preserve everything the engine does not care about
// (C11, in edit.go).
package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// recognizedPredicates is the fixed set of prefixed predicate names the
// extractor ever looks at. Everything else in the document is ignored.
var recognizedPredicates = map[string]bool{
	"registry:packageName":        true,
	"registry:packageVersion":     true,
	"registry:dependency":         true,
	"registry:author":             true,
	"registry:category":           true,
	"registry:keyword":            true,
	"registry:license":            true,
	"registry:licenseSPDX":        true,
	"registry:homepage":           true,
	"registry:documentation":      true,
	"registry:repository":         true,
	"registry:shortDescription":   true,
	"rdfs:label":                  true,
	"rdfs:comment":                true,
	"owl:imports":                 true,
}

// keepFirstPredicates duplicates of these predicates silently keep their
// first occurrence; all other recognized predicates accumulate.
var keepFirstPredicates = map[string]bool{
	"rdfs:label":   true,
	"rdfs:comment": true,
}

// ErrNotValidTurtle is returned when the document cannot be split into
// statements at all (unbalanced quotes or angle brackets).
var ErrNotValidTurtle = errors.New("manifest is not valid turtle")

var baseDirectiveRe = regexp.MustCompile(`(?m)^\s*@base\s+<([^>]+)>\s*\.`)

// statement is one top-level Turtle statement: the raw subject token as
// written, and the byte offsets of the statement's full text (subject
// through and including the terminating period) within the original
// document, so the editor can do surgical text replacement.
type statement struct {
	subject    string
	start, end int
	text       string
}

// FieldManifest is the typed projection of one field's annotations,
// scoped to the triple whose subject is the document's @base IRI. It
// retains the original text and the located statement boundaries so the
// manifest editor can round-trip modifications without reformatting
// unrelated triples.
type FieldManifest struct {
	// OntologyIRI is the @base IRI, or "" if none was declared.
	OntologyIRI string

	// Annotations maps a recognized prefixed predicate to its object
	// literal/IRI values, in document order.
	Annotations map[string][]string

	source string

	// baseStatement is the statement whose subject is the ontology IRI,
	// if one was found.
	baseStatement *statement
}

// Parse reads a Turtle document and projects its @base-subject triple
// into a FieldManifest. Returns an empty projection (not an error) if no
// @base directive is present; a later lint rejects that case.
func Parse(contents string) (*FieldManifest, error) {
	m := &FieldManifest{
		Annotations: map[string][]string{},
		source:      contents,
	}

	baseMatch := baseDirectiveRe.FindStringSubmatch(contents)
	if baseMatch == nil {
		return m, nil
	}
	m.OntologyIRI = baseMatch[1]

	statements, err := splitStatements(contents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotValidTurtle, err)
	}

	for i := range statements {
		st := &statements[i]
		if !subjectMatchesBase(st.subject, m.OntologyIRI) {
			continue
		}
		m.baseStatement = st
		extractAnnotations(st.text, m.Annotations)
	}

	return m, nil
}

// subjectMatchesBase reports whether a statement's leading subject token
// names the ontology IRI, either spelled out in full or via the empty
// relative reference "<>".
func subjectMatchesBase(subject, base string) bool {
	subject = strings.TrimSpace(subject)
	if subject == "<>" {
		return true
	}
	return subject == "<"+base+">"
}

// predicateObjectListRe captures one "verb object, object, ..." clause.
var predicateObjectListRe = regexp.MustCompile(`(?s)([A-Za-z][\w-]*:[A-Za-z_][\w-]*)\s+(.*?)\s*(?:;|\.\s*$)`)
var objectRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"|<([^>]*)>`)

func extractAnnotations(statementText string, out map[string][]string) {
	matches := predicateObjectListRe.FindAllStringSubmatch(statementText, -1)
	for _, match := range matches {
		predicate := match[1]
		if !recognizedPredicates[predicate] {
			continue
		}
		if keepFirstPredicates[predicate] {
			if _, seen := out[predicate]; seen {
				continue
			}
		}
		objects := objectRe.FindAllStringSubmatch(match[2], -1)
		for _, obj := range objects {
			var value string
			if obj[1] != "" || strings.HasPrefix(match[2], "\"") {
				value = unescapeLiteral(obj[1])
			} else {
				value = obj[2]
			}
			out[predicate] = append(out[predicate], value)
		}
	}
}

func unescapeLiteral(s string) string {
	replacer := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t")
	return replacer.Replace(s)
}

// splitStatements breaks contents into top-level Turtle statements,
// splitting on periods that occur outside angle brackets and quotes.
func splitStatements(contents string) ([]statement, error) {
	var statements []statement
	depth := 0
	inString := false
	var escaped bool
	start := 0
	subjectEnd := -1

	for i := 0; i < len(contents); i++ {
		c := contents[i]
		switch {
		case inString:
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '<':
			depth++
		case c == '>':
			if depth > 0 {
				depth--
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if subjectEnd == -1 && strings.TrimSpace(contents[start:i]) != "" {
				subjectEnd = i
			}
		case c == '.' && depth == 0:
			text := contents[start : i+1]
			trimmed := strings.TrimSpace(text)
			if trimmed != "" && !strings.HasPrefix(trimmed, "@") {
				end := subjectEnd
				if end == -1 {
					end = i
				}
				subject := strings.TrimSpace(contents[start:end])
				statements = append(statements, statement{
					subject: subject,
					start:   start,
					end:     i + 1,
					text:    text,
				})
			}
			start = i + 1
			subjectEnd = -1
		}
	}
	if inString || depth != 0 {
		return nil, fmt.Errorf("unterminated string or IRI reference")
	}
	return statements, nil
}

// quickExtractRe matches the quoted "@ns/name" literal on the same or a
// following line as registry:packageName, without building the full tree.
var quickExtractRe = regexp.MustCompile(`registry:packageName[^"]*"(@[\w-]+/[\w-]+)"`)

// QuickExtractFullName scans contents for registry:packageName without
// constructing the full statement tree; used for directory dedup and
// workspace indexing where only the package identity is needed.
func QuickExtractFullName(contents string) (string, error) {
	match := quickExtractRe.FindStringSubmatch(contents)
	if match == nil {
		return "", fmt.Errorf("could not find package full name in field contents")
	}
	return match[1], nil
}

// FullName returns the @ns/name identity recorded in registry:packageName,
// or an error if it is absent or malformed.
func (m *FieldManifest) FullName() (string, error) {
	values := m.Annotations["registry:packageName"]
	if len(values) == 0 {
		return "", fmt.Errorf("manifest has no registry:packageName annotation")
	}
	return values[0], nil
}

// Dependencies returns the raw "<full_name> <requirement>" strings
// recorded under registry:dependency.
func (m *FieldManifest) Dependencies() []string {
	return m.Annotations["registry:dependency"]
}

// Imports returns the IRIs currently listed under owl:imports.
func (m *FieldManifest) Imports() []string {
	return m.Annotations["owl:imports"]
}
