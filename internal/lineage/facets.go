package lineage

import (
	"errors"
	"fmt"
)

// Standard facet keys attached to datasets, jobs, and runs.
// Spec: https://openlineage.io/docs/spec/facets/
const (
	FacetKeySchema        = "schema"
	FacetKeyDocumentation = "documentation"
	FacetKeyDataSource    = "dataSource"
	FacetKeyOwnership     = "ownership"
	FacetKeyColumnLineage = "columnLineage"
	FacetKeyErrorMessage  = "errorMessage"
)

// ErrDuplicateFacet indicates the same facet key was supplied twice within one
// event. Duplicate facets are caller bugs: silently overwriting one would drop
// metadata the backend was supposed to merge.
var ErrDuplicateFacet = errors.New("duplicate facet key")

type (
	// SchemaField describes one field of a dataset schema facet.
	// Field order is preserved as supplied.
	SchemaField struct {
		Name        string
		Type        string
		Description string
	}

	// Owner identifies a dataset owner for the ownership facet.
	// Type is typically "TEAM" or "USER".
	Owner struct {
		Name string
		Type string
	}

	// InputField references a source column for the columnLineage facet.
	InputField struct {
		Namespace string
		Name      string
		Field     string
	}
)

// Facet values are built as generic JSON shapes (map[string]interface{},
// []interface{}, string) rather than typed structs. A facet that round-trips
// through encoding/json must compare equal to the original, and generic shapes
// are the only representation both sides of that trip share.

// facetMeta returns the provenance fields every OpenLineage facet carries.
func facetMeta(facetName string) map[string]interface{} {
	return map[string]interface{}{
		"_producer":  Producer,
		"_schemaURL": fmt.Sprintf("https://openlineage.io/spec/facets/1-0-1/%s.json", facetName),
	}
}

// SchemaFacet builds a schema dataset facet from an ordered field list.
// Spec: https://openlineage.io/docs/spec/facets/dataset-facets/schema
func SchemaFacet(fields []SchemaField) map[string]interface{} {
	facet := facetMeta("SchemaDatasetFacet")

	jsonFields := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		field := map[string]interface{}{
			"name": f.Name,
			"type": f.Type,
		}
		if f.Description != "" {
			field["description"] = f.Description
		}

		jsonFields = append(jsonFields, field)
	}

	facet["fields"] = jsonFields

	return facet
}

// DocumentationFacet builds a documentation facet holding a free-text description.
func DocumentationFacet(description string) map[string]interface{} {
	facet := facetMeta("DocumentationDatasetFacet")
	facet["description"] = description

	return facet
}

// DataSourceFacet builds a dataSource facet locating the physical source of a dataset.
func DataSourceFacet(name, uri string) map[string]interface{} {
	facet := facetMeta("DatasourceDatasetFacet")
	facet["name"] = name
	facet["uri"] = uri

	return facet
}

// OwnershipFacet builds an ownership facet from a list of owners.
func OwnershipFacet(owners []Owner) map[string]interface{} {
	facet := facetMeta("OwnershipDatasetFacet")

	jsonOwners := make([]interface{}, 0, len(owners))
	for _, o := range owners {
		jsonOwners = append(jsonOwners, map[string]interface{}{
			"name": o.Name,
			"type": o.Type,
		})
	}

	facet["owners"] = jsonOwners

	return facet
}

// ColumnLineageFacet builds a columnLineage facet mapping each output field to
// the input fields it derives from.
// Spec: https://openlineage.io/docs/spec/facets/dataset-facets/column_lineage_facet
func ColumnLineageFacet(fields map[string][]InputField) map[string]interface{} {
	facet := facetMeta("ColumnLineageDatasetFacet")

	jsonFields := make(map[string]interface{}, len(fields))

	for output, inputs := range fields {
		inputFields := make([]interface{}, 0, len(inputs))
		for _, in := range inputs {
			inputFields = append(inputFields, map[string]interface{}{
				"namespace": in.Namespace,
				"name":      in.Name,
				"field":     in.Field,
			})
		}

		jsonFields[output] = map[string]interface{}{
			"inputFields": inputFields,
		}
	}

	facet["fields"] = jsonFields

	return facet
}

// ErrorMessageFacet builds an errorMessage run facet describing why a run
// failed or was aborted.
// Spec: https://openlineage.io/docs/spec/facets/run-facets/error_message
func ErrorMessageFacet(message string) map[string]interface{} {
	facet := facetMeta("ErrorMessageRunFacet")
	facet["message"] = message
	facet["programmingLanguage"] = "GO"

	return facet
}

// FacetBuilder assembles the facet map for one event participant, rejecting
// duplicate keys. The zero value is not usable; use NewFacetBuilder.
type FacetBuilder struct {
	facets Facets
	err    error
}

// NewFacetBuilder creates an empty FacetBuilder.
func NewFacetBuilder() *FacetBuilder {
	return &FacetBuilder{facets: make(Facets)}
}

// Set attaches a facet under the given key. Setting the same key twice records
// ErrDuplicateFacet; the first error wins and Build reports it.
func (b *FacetBuilder) Set(key string, facet interface{}) *FacetBuilder {
	if b.err != nil {
		return b
	}

	if _, exists := b.facets[key]; exists {
		b.err = fmt.Errorf("%w: %q", ErrDuplicateFacet, key)

		return b
	}

	b.facets[key] = facet

	return b
}

// Build returns the accumulated facets, or the first error recorded by Set.
// Returns nil (not an empty map) when no facets were set, so empty facet maps
// never appear on the wire.
func (b *FacetBuilder) Build() (Facets, error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.facets) == 0 {
		return nil, nil
	}

	return b.facets, nil
}
