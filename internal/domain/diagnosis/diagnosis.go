package diagnosis

import (
	"regexp"
	"strings"
)

// Condition is a skin-condition label produced by the diagnosis model.
type Condition string

// Known conditions. Product metadata uses the same labels.
const (
	Psoriasis    Condition = "건선"
	Atopic       Condition = "아토피"
	Acne         Condition = "여드름"
	Rosacea      Condition = "주사"
	Seborrheic   Condition = "지루"
	Normal       Condition = "정상"
	Undetermined Condition = "진단불가"
)

// Known returns the closed set of diagnosable conditions in display order.
func Known() []Condition {
	return []Condition{Psoriasis, Atopic, Acne, Rosacea, Seborrheic, Normal}
}

// IsKnown reports whether c is one of the diagnosable conditions.
func (c Condition) IsKnown() bool {
	for _, k := range Known() {
		if c == k {
			return true
		}
	}
	return false
}

// String returns the label.
func (c Condition) String() string { return string(c) }

// Diagnosis is the output of the external diagnosis provider for one image.
type Diagnosis struct {
	condition   Condition
	description string
}

// New creates a Diagnosis. Unknown conditions are accepted as-is; they only mean
// that no condition keywords or bonuses apply.
func New(condition, description string) Diagnosis {
	return Diagnosis{
		condition:   Condition(strings.TrimSpace(condition)),
		description: strings.TrimSpace(description),
	}
}

// Condition returns the condition label, possibly empty.
func (d Diagnosis) Condition() Condition { return d.condition }

// Description returns the clinical description, possibly empty.
func (d Diagnosis) Description() string { return d.description }

// Indeterminate reports whether the provider could not make a diagnosis.
func (d Diagnosis) Indeterminate() bool { return d.condition == Undetermined }

// IsEmpty reports whether neither a condition nor a description is present.
func (d Diagnosis) IsEmpty() bool { return d.condition == "" && d.description == "" }

var (
	labelRe   = regexp.MustCompile(`(?s)<label>(.*?)</label>`)
	summaryRe = regexp.MustCompile(`(?s)<summary>(.*?)(?:</summary>|$)`)
)

// labelAliases maps long-form labels emitted by the model to the product metadata labels.
var labelAliases = map[string]Condition{
	"아토피 피부염": Atopic,
	"지루 피부염":  Seborrheic,
	"지루성 피부염": Seborrheic,
}

// ParseReply extracts a Diagnosis from a model reply of the form
// "<label>건선_정면</label><summary>...</summary>".
// Without a label the condition is empty and the whole reply becomes the description.
// Without a summary the description is whatever follows the label.
func ParseReply(reply string) Diagnosis {
	reply = strings.TrimSpace(reply)

	m := labelRe.FindStringSubmatchIndex(reply)
	if m == nil {
		return New("", reply)
	}

	label := NormalizeLabel(reply[m[2]:m[3]])

	var description string
	if sm := summaryRe.FindStringSubmatch(reply); sm != nil {
		description = sm[1]
	} else {
		description = reply[m[1]:]
	}

	return New(string(label), description)
}

// NormalizeLabel strips view suffixes (_정면, _측면) and maps long-form names.
func NormalizeLabel(label string) Condition {
	label = strings.TrimSpace(label)
	label = strings.TrimSuffix(label, "_정면")
	label = strings.TrimSuffix(label, "_측면")
	label = strings.TrimSpace(label)
	if c, ok := labelAliases[label]; ok {
		return c
	}
	return Condition(label)
}
