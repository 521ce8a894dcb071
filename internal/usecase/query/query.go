package query

import (
	"strings"

	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	"github.com/kailas-cloud/cosmerec/internal/usecase/translate"
)

// ConditionRepeat is how many times the condition name is repeated to raise its weight.
const ConditionRepeat = 3

// SkinSuffix follows the user's skin type, as in "건성 피부".
const SkinSuffix = "피부"

// careTokens bias every query toward product vocabulary.
var careTokens = []string{"케어", "화장품", "스킨케어"}

// Build composes the embedding query for a diagnosis and preference.
// The order of parts matters: earlier and repeated tokens weigh more in sentence embeddings.
func Build(d diagnosis.Diagnosis, p preference.Preference) string {
	parts := make([]string, 0, ConditionRepeat+2+len(careTokens))

	condition := d.Condition().String()
	if condition != "" {
		for range ConditionRepeat {
			parts = append(parts, condition)
		}
	}

	if condition != "" && d.Description() != "" {
		parts = append(parts, translate.Translate(d.Description(), condition))
	}

	if skin := p.SkinType(); skin != "" {
		parts = append(parts, skin+" "+SkinSuffix)
	}

	parts = append(parts, careTokens...)

	return strings.Join(parts, " ")
}
