package manifest

import (
	"fmt"
	"strings"

	"github.com/plow-dev/plow/internal/fs"
	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/spf13/afero"
)

// lastTwoSegments returns the final two "/"-separated segments of an IRI,
// the comparison key the import-diff algorithm uses so that IRIs differing
// only in scheme or host still match.
func lastTwoSegments(iri string) string {
	trimmed := strings.TrimRight(iri, "/")
	segments := strings.Split(trimmed, "/")
	if len(segments) <= 2 {
		return trimmed
	}
	return strings.Join(segments[len(segments)-2:], "/")
}

// ComputeImportDiff compares the existing owl:imports object list against
// the desired set of resolved dependency IRIs, keyed by their last two path
// segments, and returns the symmetric difference: IRIs to add and IRIs to
// remove from the existing list.
func ComputeImportDiff(existing, desired []string) (toAdd, toRemove []string) {
	existingByKey := make(map[string]string, len(existing))
	for _, iri := range existing {
		existingByKey[lastTwoSegments(iri)] = iri
	}
	desiredByKey := make(map[string]string, len(desired))
	for _, iri := range desired {
		desiredByKey[lastTwoSegments(iri)] = iri
	}

	for key, iri := range desiredByKey {
		if _, ok := existingByKey[key]; !ok {
			toAdd = append(toAdd, iri)
		}
	}
	for key, iri := range existingByKey {
		if _, ok := desiredByKey[key]; !ok {
			toRemove = append(toRemove, iri)
		}
	}
	return toAdd, toRemove
}

// UpdateImports rewrites m's owl:imports object list in place to add/remove
// the symmetric difference against desiredIRIs, preserving every other
// triple's original text verbatim. It fails if the manifest has no
// recognized base-subject statement; if that statement carries no
// owl:imports clause, a fresh one is inserted via CreateImports.
func UpdateImports(m *FieldManifest, desiredIRIs []string) (string, error) {
	if m.baseStatement == nil {
		return "", fmt.Errorf("manifest has no statement for its ontology IRI")
	}
	existing := m.Imports()
	toAdd, toRemove := ComputeImportDiff(existing, desiredIRIs)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return m.source, nil
	}

	removeSet := make(map[string]bool, len(toRemove))
	for _, iri := range toRemove {
		removeSet[lastTwoSegments(iri)] = true
	}

	kept := make([]string, 0, len(existing))
	for _, iri := range existing {
		if !removeSet[lastTwoSegments(iri)] {
			kept = append(kept, iri)
		}
	}
	kept = append(kept, toAdd...)

	clause := renderImportsClause(kept)
	newStatementText, err := replacePredicateClause(m.baseStatement.text, "owl:imports", clause)
	if err != nil {
		// owl:imports was not present as its own clause; fall through to
		// inserting a fresh one.
		return CreateImports(m, kept)
	}

	return m.source[:m.baseStatement.start] + newStatementText + m.source[m.baseStatement.end:], nil
}

// CreateImports synthesizes a fresh owl:imports predicate-object clause
// listing iris and inserts it into the ontology-declaration statement's
// predicate-object list, immediately before the terminating period.
func CreateImports(m *FieldManifest, iris []string) (string, error) {
	if m.baseStatement == nil {
		return "", fmt.Errorf("manifest has no statement for its ontology IRI")
	}
	if len(iris) == 0 {
		return m.source, nil
	}

	text := m.baseStatement.text
	trimmedEnd := strings.TrimRight(text, " \t\r\n")
	if !strings.HasSuffix(trimmedEnd, ".") {
		return "", fmt.Errorf("ontology statement does not end with a period")
	}
	body := strings.TrimSuffix(trimmedEnd, ".")
	body = strings.TrimRight(body, " \t\r\n")

	clause := renderImportsClause(iris)
	newText := body + " ;\n    " + clause + " ." + text[len(trimmedEnd):]

	return m.source[:m.baseStatement.start] + newText + m.source[m.baseStatement.end:], nil
}

func renderImportsClause(iris []string) string {
	objects := make([]string, len(iris))
	for i, iri := range iris {
		objects[i] = "<" + iri + ">"
	}
	return "owl:imports " + strings.Join(objects, ", ")
}

// replacePredicateClause finds predicate's "predicate object, object"
// clause within statementText (terminated by ";" or the statement's own
// trailing period) and replaces it with newClause, preserving everything
// else in the statement verbatim. Returns an error if predicate's clause
// cannot be located.
func replacePredicateClause(statementText, predicate, newClause string) (string, error) {
	idx := strings.Index(statementText, predicate)
	if idx == -1 {
		return "", fmt.Errorf("predicate %s not found in statement", predicate)
	}

	rest := statementText[idx:]
	end := len(rest)
	if semi := strings.IndexByte(rest, ';'); semi != -1 {
		end = semi
	}
	if dot := lastTopLevelPeriod(rest); dot != -1 && dot < end {
		end = dot
	}

	return statementText[:idx] + newClause + " " + statementText[idx+end:], nil
}

// lastTopLevelPeriod finds the terminating period of a statement fragment,
// i.e. a "." not inside angle brackets or quotes.
func lastTopLevelPeriod(s string) int {
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inString = !inString
		case '<':
			if !inString {
				depth++
			}
		case '>':
			if !inString && depth > 0 {
				depth--
			}
		case '.':
			if !inString && depth == 0 {
				return i
			}
		}
	}
	return -1
}

// WriteBack writes newText to origin, replacing its previous contents.
func WriteBack(fsys afero.Fs, origin turbopath.AbsoluteSystemPath, newText string) error {
	if err := fs.EnsureDirFS(fsys, origin); err != nil {
		return err
	}
	return afero.WriteFile(fsys, origin.ToString(), []byte(newText), 0644)
}
