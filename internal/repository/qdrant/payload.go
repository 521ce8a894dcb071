package qdrant

import (
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	domprod "github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// Payload keys. The catalog was first published to Qdrant with Korean keys and
// existing collections keep them.
const (
	keyProductID     = "product_id"
	keyName          = "제품명"
	keyBrand         = "브랜드"
	keyPrice         = "가격"
	keyProductType   = "제품유형"
	keySkinType      = "피부타입"
	keyConditions    = "관련_피부질환"
	keyDescription   = "제품설명"
	keyEmbeddingText = "embedding_text"
)

// fieldKeys maps filter field names onto payload keys.
var fieldKeys = map[string]string{
	filter.FieldPrice: keyPrice,
}

// pointID derives a stable UUID from the product id; Qdrant only accepts
// unsigned integers or UUIDs.
func pointID(productID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(domain.KeyPrefix+"product:"+productID)).String()
}

func buildPayload(p *domprod.Product) (map[string]*qdrant.Value, error) {
	names := p.Conditions().Names()
	conds := make([]any, len(names))
	for i, n := range names {
		conds[i] = n
	}

	return qdrant.TryValueMap(map[string]any{
		keyProductID:     p.ID(),
		keyName:          p.Name(),
		keyBrand:         p.Brand(),
		keyPrice:         p.Price(),
		keyProductType:   p.ProductType(),
		keySkinType:      p.SkinType(),
		keyConditions:    conds,
		keyDescription:   p.Description(),
		keyEmbeddingText: p.EmbeddingText(),
	})
}

// parsePayload rebuilds a product from a search hit. Conditions stored as a
// legacy string go through the same parser as catalog ingestion.
func parsePayload(fallbackID string, payload map[string]*qdrant.Value) domprod.Product {
	str := func(k string) string { return payload[k].GetStringValue() }

	id := str(keyProductID)
	if id == "" {
		id = fallbackID
	}

	return domprod.Reconstruct(id, domprod.Attributes{
		Name:          str(keyName),
		Brand:         str(keyBrand),
		Price:         priceOf(payload[keyPrice]),
		ProductType:   str(keyProductType),
		SkinType:      str(keySkinType),
		Conditions:    conditionsOf(payload[keyConditions]),
		Description:   str(keyDescription),
		EmbeddingText: str(keyEmbeddingText),
	}, nil)
}

func priceOf(v *qdrant.Value) int {
	switch v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return int(v.GetIntegerValue())
	case *qdrant.Value_DoubleValue:
		return int(v.GetDoubleValue())
	default:
		return 0
	}
}

func conditionsOf(v *qdrant.Value) domprod.Conditions {
	if list := v.GetListValue(); list != nil {
		names := make([]string, 0, len(list.GetValues()))
		for _, item := range list.GetValues() {
			if s, ok := item.GetKind().(*qdrant.Value_StringValue); ok {
				names = append(names, s.StringValue)
			}
		}
		return domprod.MustParseConditions(domprod.ConditionsFromList(names))
	}
	return domprod.MustParseConditions(domprod.ConditionsFromText(v.GetStringValue()))
}

// buildFilter converts range conditions into a Qdrant must-filter; nil when empty.
func buildFilter(expr filter.Expression) *qdrant.Filter {
	if expr.IsEmpty() {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		key, ok := fieldKeys[c.Key()]
		if !ok {
			key = c.Key()
		}
		upper := c.Max()
		must = append(must, qdrant.NewRange(key, &qdrant.Range{Lte: &upper}))
	}
	return &qdrant.Filter{Must: must}
}
