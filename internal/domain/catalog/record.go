// Package catalog holds raw product corpus rows before validation.
package catalog

// Record is one corpus row as read from a file. Values are untrimmed source text.
type Record struct {
	Row           int // zero-based position in the source
	ID            string
	Name          string
	Brand         string
	Price         string
	ProductType   string
	SkinType      string
	Conditions    string   // legacy string form
	ConditionList []string // set when the source stores a genuine list
	Description   string
	EmbeddingText string
}

// Field names a product attribute a corpus column maps to.
type Field int

// Corpus fields.
const (
	FieldUnknown Field = iota
	FieldID
	FieldName
	FieldBrand
	FieldPrice
	FieldProductType
	FieldSkinType
	FieldConditions
	FieldDescription
	FieldEmbeddingText
)

// columnAliases maps lower-cased header names to fields. Korean names match the
// product spreadsheet exports.
var columnAliases = map[string]Field{
	"id":                    FieldID,
	"product_id":            FieldID,
	"제품id":                  FieldID,
	"name":                  FieldName,
	"제품명":                   FieldName,
	"brand":                 FieldBrand,
	"브랜드":                   FieldBrand,
	"price":                 FieldPrice,
	"가격":                    FieldPrice,
	"product_type":          FieldProductType,
	"제품유형":                  FieldProductType,
	"skin_type":             FieldSkinType,
	"피부타입":                  FieldSkinType,
	"associated_conditions": FieldConditions,
	"conditions":            FieldConditions,
	"관련_피부질환":               FieldConditions,
	"description":           FieldDescription,
	"제품설명":                  FieldDescription,
	"embedding_text":        FieldEmbeddingText,
	"임베딩_텍스트":               FieldEmbeddingText,
}

// FieldForColumn resolves a header name; unknown columns map to FieldUnknown.
func FieldForColumn(name string) Field {
	return columnAliases[normalizeHeader(name)]
}

// RequiredFields must be present as columns in every corpus.
var RequiredFields = []Field{FieldName, FieldBrand, FieldEmbeddingText}

// String returns the canonical English column name.
func (f Field) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldName:
		return "name"
	case FieldBrand:
		return "brand"
	case FieldPrice:
		return "price"
	case FieldProductType:
		return "product_type"
	case FieldSkinType:
		return "skin_type"
	case FieldConditions:
		return "associated_conditions"
	case FieldDescription:
		return "description"
	case FieldEmbeddingText:
		return "embedding_text"
	default:
		return "unknown"
	}
}

// Set assigns value to the record field f. Unknown fields are ignored.
func (r *Record) Set(f Field, value string) {
	switch f {
	case FieldID:
		r.ID = value
	case FieldName:
		r.Name = value
	case FieldBrand:
		r.Brand = value
	case FieldPrice:
		r.Price = value
	case FieldProductType:
		r.ProductType = value
	case FieldSkinType:
		r.SkinType = value
	case FieldConditions:
		r.Conditions = value
	case FieldDescription:
		r.Description = value
	case FieldEmbeddingText:
		r.EmbeddingText = value
	case FieldUnknown:
	}
}

// MissingFields reports required fields absent from the resolved column set.
func MissingFields(present map[Field]bool) []Field {
	var missing []Field
	for _, f := range RequiredFields {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}
