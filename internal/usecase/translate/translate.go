// Package translate rewrites clinical diagnosis text into the vocabulary used by
// cosmetic product descriptions, so that both sides land close in embedding space.
package translate

import "strings"

// KeywordLimit is how many condition keywords are appended to a translation.
const KeywordLimit = 8

type substitution struct {
	clinical string
	cosmetic string
}

// substitutions are applied in order, each on the output of the previous ones.
// A rule whose output contains another rule's source phrase must come after that rule,
// and a phrase must come before any shorter phrase it contains.
var substitutions = []substitution{
	// 홍조 appears in the output of several rules below, so it is rewritten first.
	{"홍조", "염증 자극"},

	// psoriasis
	{"홍반성 판", "홍조 피부장벽손상"},
	{"은백색 인설", "각질 인설 건조"},
	{"면포성 병변", "블랙헤드 화이트헤드"},
	{"구진성 병변", "돌기 염증"},
	{"특별한 병변", "특이사항"},
	{"병변", "문제 피부"},
	{"경계가 명확", "국소적 피부트러블"},
	{"헤어라인", "이마 경계부위"},
	{"두꺼운 인설", "심한 각질 건조"},
	{"염증 반응", "자극 홍조"},

	// atopic
	{"가려움", "간지러움 자극"},
	{"긁은 자국", "상처 손상"},
	{"거친 피부", "건조 거칠음"},
	{"스크래치 자국", "긁힌 자국 손상"},
	{"벗겨짐 현상", "각질 탈락"},
	{"리켄화", "피부 두꺼워짐"},
	{"경계가 모호", "불규칙한 트러블"},

	// acne
	{"염증성 구진", "염증 뾰루지"},
	{"농포", "화농성 여드름"},
	{"피지 분비", "기름기 과다분비"},
	{"모공 확대", "넓어진 모공"},
	{"홍반성 구진", "빨간 뾰루지"},
	{"농화", "고름 염증"},
	{"피지선", "기름샘 활성"},

	// rosacea
	{"지속적인 홍반", "만성 홍조"},
	{"모세혈관 확장", "혈관 확장 홍조"},
	{"텔랑지에타지아", "실핏줄 확장"},
	{"발적", "빨갛게 달아오름"},
	{"경계가 불명확", "번진 홍조"},
	{"자극적인 징후", "민감 반응"},

	// seborrheic
	{"기름진 노란색 인설", "유분기 많은 각질"},
	{"T존", "이마코턱 기름부위"},
	{"기름짐", "과도한 유분"},
	{"비늘 같은 인설", "각질 비듬"},
	{"습기 있는 느낌", "끈적한 유분감"},

	// normal
	{"건강한 광택", "자연스러운 윤기"},
	{"매끄럽고 고른 질감", "부드러운 피부결"},
	{"수분과 유분의 균형", "유수분 밸런스"},
}

// conditionKeywords lists cosmetic terms per condition: care goals first, then
// ingredients, then skin descriptors. Only the first KeywordLimit are used.
var conditionKeywords = map[string][]string{
	"건선": {
		"피부장벽 강화", "보습", "진정", "각질 케어", "인설 완화",
		"세라마이드", "콜레스테롤", "판테놀", "시어버터",
		"건조 완화", "민감성 피부", "수분 공급", "피부 재생",
	},
	"아토피": {
		"피부장벽 복원", "보습", "진정", "가려움 완화", "염증 진정",
		"세라마이드", "히알루론산", "알란토인", "센텔라",
		"민감성 피부", "수분 보충", "자극 완화", "스크래치 케어",
	},
	"여드름": {
		"피지 조절", "모공 케어", "각질 제거", "항염", "염증 진정",
		"살리실산", "나이아신아마이드", "징크", "티트리",
		"지성 피부", "블랙헤드", "화이트헤드", "논코메도제닉",
	},
	"주사": {
		"홍조 완화", "진정", "혈관 케어", "민감성 피부", "자극 완화",
		"센텔라", "알란토인", "나이아신아마이드", "아젤라산",
		"쿨링", "항염", "발적 완화", "모세혈관 케어",
	},
	"지루": {
		"피지 조절", "각질 케어", "항염", "T존 케어", "기름기 조절",
		"살리실산", "징크 피리치온", "나이아신아마이드", "티트리",
		"지성 피부", "인설 케어", "가려움 완화", "유수분 밸런스",
	},
	"정상": {
		"보습", "수분 공급", "유수분 밸런스", "피부 보호", "영양 공급",
		"히알루론산", "글리세린", "판테놀", "비타민E",
		"건강한 피부", "윤기", "탄력", "매끄러운 질감",
	},
}

// Translate rewrites description phrase by phrase and appends up to KeywordLimit
// keywords for condition, separated by a single space. Unknown conditions get no
// keywords; substitutions apply regardless of condition.
func Translate(description, condition string) string {
	translated := description
	for _, s := range substitutions {
		translated = strings.ReplaceAll(translated, s.clinical, s.cosmetic)
	}

	keywords := conditionKeywords[condition]
	if len(keywords) > KeywordLimit {
		keywords = keywords[:KeywordLimit]
	}

	return translated + " " + strings.Join(keywords, " ")
}

// Keywords returns a copy of the full keyword list for condition.
func Keywords(condition string) []string {
	kw := conditionKeywords[condition]
	out := make([]string, len(kw))
	copy(out, kw)
	return out
}
