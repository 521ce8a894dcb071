package query

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	"github.com/kailas-cloud/cosmerec/internal/usecase/translate"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		d    diagnosis.Diagnosis
		p    preference.Preference
		want string
	}{
		{
			name: "everything empty",
			d:    diagnosis.New("", ""),
			p:    preference.New("", 0),
			want: "케어 화장품 스킨케어",
		},
		{
			name: "condition only",
			d:    diagnosis.New("건선", ""),
			p:    preference.New("", 0),
			want: "건선 건선 건선 케어 화장품 스킨케어",
		},
		{
			name: "skin type only",
			d:    diagnosis.New("", ""),
			p:    preference.New("민감성", 80000),
			want: "민감성 피부 케어 화장품 스킨케어",
		},
		{
			name: "description without condition is ignored",
			d:    diagnosis.New("", "홍반성 판"),
			p:    preference.New("", 0),
			want: "케어 화장품 스킨케어",
		},
		{
			name: "multi skin type kept verbatim",
			d:    diagnosis.New("", ""),
			p:    preference.New("건성, 민감성", 0),
			want: "건성, 민감성 피부 케어 화장품 스킨케어",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Build(tc.d, tc.p); got != tc.want {
				t.Errorf("Build() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuild_FullQueryOrder(t *testing.T) {
	d := diagnosis.New("아토피", "스크래치 자국")
	p := preference.New("건성", 80000)

	got := Build(d, p)
	want := strings.Join([]string{
		"아토피", "아토피", "아토피",
		translate.Translate("스크래치 자국", "아토피"),
		"건성 피부",
		"케어", "화장품", "스킨케어",
	}, " ")
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
	if !strings.Contains(got, "긁힌 자국 손상") {
		t.Errorf("translated description missing from %q", got)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	d := diagnosis.New("주사", "지속적인 홍반")
	p := preference.New("민감성", 0)
	if Build(d, p) != Build(d, p) {
		t.Error("Build must be deterministic")
	}
}
