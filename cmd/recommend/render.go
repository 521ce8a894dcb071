package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
)

var (
	title   = color.New(color.FgCyan, color.Bold).SprintFunc()
	heading = color.New(color.FgGreen, color.Bold).SprintFunc()
	label   = color.New(color.FgHiBlack).SprintFunc()
	bonus   = color.New(color.FgYellow).SprintFunc()
)

const rule = 60

// won formats a price with thousands separators.
func won(price int) string {
	return humanize.Comma(int64(price)) + "원"
}

// render prints a recommendation in the terminal layout.
func render(w io.Writer, res domrec.Result) {
	fmt.Fprintln(w, strings.Repeat("=", rule))
	fmt.Fprintln(w, title("화장품 추천 결과"))
	fmt.Fprintln(w, strings.Repeat("=", rule))

	in := res.Input
	fmt.Fprintf(w, "%s %s\n", label("피부질환:"), orDash(in.Condition))
	fmt.Fprintf(w, "%s %s\n", label("피부타입:"), orDash(in.SkinType))
	if in.PriceCeiling > 0 {
		fmt.Fprintf(w, "%s %s 이하\n", label("가격대:"), won(in.PriceCeiling))
	} else {
		fmt.Fprintf(w, "%s 제한 없음\n", label("가격대:"))
	}
	fmt.Fprintf(w, "%s %s\n", label("검색쿼리:"), in.Query)

	fmt.Fprintf(w, "\n%s\n", heading(fmt.Sprintf("추천 제품 (%d개):", res.Count())))
	fmt.Fprintln(w, strings.Repeat("-", rule))

	for i := range res.Candidates {
		c := &res.Candidates[i]
		p := c.Product()
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, p.Name())
		fmt.Fprintf(w, "    %s %s\n", label("브랜드:"), p.Brand())
		fmt.Fprintf(w, "    %s %s\n", label("가격:"), won(p.Price()))
		fmt.Fprintf(w, "    %s %.3f\n", label("유사도:"), c.Score())
		fmt.Fprintf(w, "    %s %s\n", label("관련 피부질환:"), p.Conditions().String())
		if tags := c.Bonuses(); len(tags) > 0 {
			fmt.Fprintf(w, "    %s %s\n", label("매치 보너스:"), bonus(strings.Join(tags, ", ")))
		}
		fmt.Fprintf(w, "    %s %s\n", label("피부타입:"), p.SkinType())
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
