package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleField = `
@prefix registry: <http://field33.com/ontologies/REGISTRY/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@base <http://field33.com/ontologies/@cities/Berlin/> .

<http://field33.com/ontologies/@cities/Berlin/> a owl:Ontology ;
    registry:packageName "@cities/Berlin" ;
    registry:packageVersion "0.0.1" ;
    registry:dependency "@cities/Frankfurt =0.0.1" ;
    registry:dependency "@cities/Hamburg =0.0.1" ;
    rdfs:label "Berlin" ;
    rdfs:comment "A city." ;
    owl:imports <http://field33.com/ontologies/@cities/Frankfurt/> .
`

func TestParseExtractsAnnotations(t *testing.T) {
	m, err := Parse(sampleField)
	require.NoError(t, err)
	assert.Equal(t, "http://field33.com/ontologies/@cities/Berlin/", m.OntologyIRI)

	name, err := m.FullName()
	require.NoError(t, err)
	assert.Equal(t, "@cities/Berlin", name)

	assert.ElementsMatch(t, []string{
		"@cities/Frankfurt =0.0.1", "@cities/Hamburg =0.0.1",
	}, m.Dependencies())

	assert.Equal(t, []string{"http://field33.com/ontologies/@cities/Frankfurt/"}, m.Imports())
}

func TestParseNoBaseIsEmptyNotError(t *testing.T) {
	m, err := Parse("@prefix registry: <http://field33.com/ontologies/REGISTRY/> .\n")
	require.NoError(t, err)
	assert.Empty(t, m.OntologyIRI)
	assert.Empty(t, m.Annotations)
}

func TestQuickExtractFullName(t *testing.T) {
	name, err := QuickExtractFullName(sampleField)
	require.NoError(t, err)
	assert.Equal(t, "@cities/Berlin", name)
}

func TestQuickExtractFullNameMissing(t *testing.T) {
	_, err := QuickExtractFullName("no package name annotation here")
	assert.Error(t, err)
}

func TestComputeImportDiff(t *testing.T) {
	existing := []string{"http://field33.com/ontologies/@cities/Frankfurt/"}
	desired := []string{
		"http://field33.com/ontologies/@cities/Frankfurt/",
		"http://field33.com/ontologies/@cities/Hamburg/",
	}
	toAdd, toRemove := ComputeImportDiff(existing, desired)
	assert.Equal(t, []string{"http://field33.com/ontologies/@cities/Hamburg/"}, toAdd)
	assert.Empty(t, toRemove)
}

func TestUpdateImportsAddsAndRemoves(t *testing.T) {
	m, err := Parse(sampleField)
	require.NoError(t, err)

	newText, err := UpdateImports(m, []string{
		"http://field33.com/ontologies/@cities/Hamburg/",
	})
	require.NoError(t, err)
	assert.Contains(t, newText, "@cities/Hamburg")
	assert.NotContains(t, newText, "owl:imports <http://field33.com/ontologies/@cities/Frankfurt/>")
	assert.Contains(t, newText, "registry:packageName \"@cities/Berlin\"")
}

func TestCreateImportsWhenAbsent(t *testing.T) {
	withoutImports := `
@base <http://field33.com/ontologies/@cities/Berlin/> .
<http://field33.com/ontologies/@cities/Berlin/> a owl:Ontology ;
    registry:packageName "@cities/Berlin" .
`
	m, err := Parse(withoutImports)
	require.NoError(t, err)
	assert.Empty(t, m.Imports())

	newText, err := CreateImports(m, []string{"http://field33.com/ontologies/@cities/Frankfurt/"})
	require.NoError(t, err)
	assert.Contains(t, newText, "owl:imports <http://field33.com/ontologies/@cities/Frankfurt/>")
}
