package product

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	domprod "github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// Hash field names. Only price, product_type and the vector are indexed.
const (
	fieldID            = "id"
	fieldName          = "name"
	fieldBrand         = "brand"
	fieldPrice         = "price"
	fieldProductType   = "product_type"
	fieldSkinType      = "skin_type"
	fieldConditions    = "conditions"
	fieldDescription   = "description"
	fieldEmbeddingText = "embedding_text"
	fieldVector        = "__vector"
)

// returnFields is everything a search hit needs; the vector stays on the server.
var returnFields = []string{
	fieldID, fieldName, fieldBrand, fieldPrice, fieldProductType,
	fieldSkinType, fieldConditions, fieldDescription,
}

func buildHashFields(p *domprod.Product) (map[string]string, error) {
	conds, err := json.Marshal(p.Conditions())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		fieldID:            p.ID(),
		fieldName:          p.Name(),
		fieldBrand:         p.Brand(),
		fieldPrice:         strconv.Itoa(p.Price()),
		fieldProductType:   p.ProductType(),
		fieldSkinType:      p.SkinType(),
		fieldConditions:    string(conds),
		fieldDescription:   p.Description(),
		fieldEmbeddingText: p.EmbeddingText(),
		fieldVector:        vectorToBytes(p.Vector()),
	}, nil
}

// parseHashFields rebuilds a product from stored fields. Conditions that fail to
// parse hydrate as the empty set; the product itself is always kept.
func parseHashFields(id string, m map[string]string) domprod.Product {
	if v := m[fieldID]; v != "" {
		id = v
	}
	price, _ := strconv.Atoi(m[fieldPrice])
	conds, _ := domprod.ParseConditions(domprod.ConditionsFromText(m[fieldConditions]))

	var vec []float32
	if raw, ok := m[fieldVector]; ok {
		vec = bytesToVector(raw)
	}

	return domprod.Reconstruct(id, domprod.Attributes{
		Name:          m[fieldName],
		Brand:         m[fieldBrand],
		Price:         price,
		ProductType:   m[fieldProductType],
		SkinType:      m[fieldSkinType],
		Conditions:    conds,
		Description:   m[fieldDescription],
		EmbeddingText: m[fieldEmbeddingText],
	}, vec)
}

// vectorToBytes packs a vector as little-endian FLOAT32, the layout FT.SEARCH expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	if len(s)%4 != 0 {
		return nil
	}
	b := []byte(s)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
