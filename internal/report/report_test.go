package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
)

// validPayload returns a complete single-stage payload as a generic map so
// tests can remove or corrupt individual fields.
func validPayload() map[string]any {
	return map[string]any{
		"score":             72,
		"primaryCategory":   "火",
		"categoryRationale": "额头饱满，眉眼有神",
		"sections": []any{
			map[string]any{"name": "官禄宫", "status": "优", "detail": "事业运旺"},
			map[string]any{"name": "财帛宫", "status": "良", "detail": "财运平稳"},
		},
		"riskMetrics": []any{
			map[string]any{"label": "加班指数", "normalizedValue": "85%", "qualitativeTag": "高", "detail": "容易被安排加班"},
			map[string]any{"label": "摸鱼天赋", "normalizedValue": 40, "qualitativeTag": "中", "detail": "偶尔摸鱼"},
		},
		"narrativeBlocks": map[string]any{"past": "过去", "present": "现在", "future": "未来"},
		"roleProfile": map[string]any{
			"role":          "项目经理",
			"strengths":     []any{"沟通", "协调"},
			"advice":        "多休息",
			"compatibility": "土型同事",
		},
		"personalitySummary":  "热情",
		"socialGuidance":      "多倾听",
		"suggestedActivities": []any{"爬山", "喝茶"},
		"currentStateLabel":   "红光满面",
		"currentStateMessage": "状态不错",
	}
}

func extendedPayload() map[string]any {
	p := validPayload()
	p["headline"] = map[string]any{"verse": "火旺之相", "summary": "精力充沛"}
	p["extendedLog"] = map[string]any{
		"structuralNotes": "骨相清奇",
		"demeanorNotes":   "神态从容",
		"riskNotes":       "注意作息",
	}
	return p
}

func encode(t testing.TB, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(data)
}

func TestParse_Valid(t *testing.T) {
	r, err := Parse(encode(t, validPayload()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if r.Score != 72 {
		t.Errorf("expected score 72, got %d", r.Score)
	}
	if r.PrimaryCategory != CategoryFire {
		t.Errorf("expected category 火, got %q", r.PrimaryCategory)
	}
	if len(r.Sections) != 2 || r.Sections[0].Status != StatusExcellent {
		t.Errorf("unexpected sections: %+v", r.Sections)
	}
	if r.RiskMetrics[0].NormalizedValue != 85 || r.RiskMetrics[1].NormalizedValue != 40 {
		t.Errorf("unexpected metric values: %+v", r.RiskMetrics)
	}
	if r.IsExtended() {
		t.Error("single-stage report should not be extended")
	}
}

func TestParse_StripsCodeFence(t *testing.T) {
	raw := "```json\n" + encode(t, validPayload()) + "\n```"
	if _, err := Parse(raw); err != nil {
		t.Fatalf("expected fenced payload to parse, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"score": 72,`, "```\n{oops}\n```"} {
		_, err := Parse(raw)
		if !apperrors.Is(err, apperrors.KindMalformedResponse) {
			t.Errorf("Parse(%q): expected malformed_response, got %v", raw, err)
		}
	}
}

func TestParse_NonObject(t *testing.T) {
	for _, raw := range []string{"[]", `"report"`, "42", "null"} {
		_, err := Parse(raw)
		if !apperrors.Is(err, apperrors.KindValidation) {
			t.Errorf("Parse(%q): expected validation_error, got %v", raw, err)
		}
	}
}

func TestParse_MissingRequiredFields(t *testing.T) {
	required := []string{
		"score", "primaryCategory", "categoryRationale", "sections", "riskMetrics",
		"narrativeBlocks", "roleProfile", "personalitySummary", "socialGuidance",
		"suggestedActivities", "currentStateLabel", "currentStateMessage",
	}
	for _, field := range required {
		t.Run(field, func(t *testing.T) {
			p := validPayload()
			delete(p, field)
			_, err := Parse(encode(t, p))
			if !apperrors.Is(err, apperrors.KindValidation) {
				t.Fatalf("expected validation_error, got %v", err)
			}
			if !strings.Contains(err.Error(), field) {
				t.Errorf("expected error to name %s, got %v", field, err)
			}
		})
	}
}

func TestParse_NullAndBlankFields(t *testing.T) {
	cases := map[string]func(map[string]any){
		"null rationale":   func(p map[string]any) { p["categoryRationale"] = nil },
		"blank summary":    func(p map[string]any) { p["personalitySummary"] = "   " },
		"empty sections":   func(p map[string]any) { p["sections"] = []any{} },
		"empty activities": func(p map[string]any) { p["suggestedActivities"] = []any{} },
		"missing future": func(p map[string]any) {
			p["narrativeBlocks"] = map[string]any{"past": "a", "present": "b"}
		},
		"empty strengths": func(p map[string]any) {
			p["roleProfile"].(map[string]any)["strengths"] = []any{}
		},
		"wrong type": func(p map[string]any) { p["sections"] = "优" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validPayload()
			mutate(p)
			if _, err := Parse(encode(t, p)); !apperrors.Is(err, apperrors.KindValidation) {
				t.Errorf("expected validation_error, got %v", err)
			}
		})
	}
}

func TestParse_ScoreRange(t *testing.T) {
	cases := []struct {
		score any
		ok    bool
	}{
		{0, true},
		{100, true},
		{-1, false},
		{101, false},
		{72.5, false},
		{"72", false},
	}
	for _, tc := range cases {
		p := validPayload()
		p["score"] = tc.score
		r, err := Parse(encode(t, p))
		if tc.ok {
			if err != nil {
				t.Errorf("score %v: unexpected error %v", tc.score, err)
			} else if r.Score < 0 || r.Score > 100 {
				t.Errorf("score %v: parsed %d outside range", tc.score, r.Score)
			}
			continue
		}
		if !apperrors.Is(err, apperrors.KindValidation) {
			t.Errorf("score %v: expected validation_error, got %v", tc.score, err)
		}
	}
}

func TestParse_NormalizedValue(t *testing.T) {
	cases := []struct {
		value any
		want  int
		ok    bool
	}{
		{"85%", 85, true},
		{" 60 % ", 60, true},
		{"85％", 85, true},
		{33.6, 34, true},
		{0, 0, true},
		{"120%", 0, false},
		{-5, 0, false},
		{"high", 0, false},
		{"NaN%", 0, false},
		{"nan", 0, false},
		{"Inf%", 0, false},
		{"-Infinity", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		p := validPayload()
		p["riskMetrics"] = []any{
			map[string]any{"label": "l", "normalizedValue": tc.value, "qualitativeTag": "t", "detail": "d"},
		}
		r, err := Parse(encode(t, p))
		if !tc.ok {
			if !apperrors.Is(err, apperrors.KindValidation) {
				t.Errorf("value %v: expected validation_error, got %v", tc.value, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("value %v: unexpected error %v", tc.value, err)
			continue
		}
		if got := r.RiskMetrics[0].NormalizedValue; got != tc.want {
			t.Errorf("value %v: got %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestParse_CollectsAllProblems(t *testing.T) {
	p := validPayload()
	delete(p, "score")
	p["primaryCategory"] = "风"
	_, err := Parse(encode(t, p))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "score") || !strings.Contains(msg, "primaryCategory") {
		t.Errorf("expected both problems in %q", msg)
	}
}

func TestParse_Moles(t *testing.T) {
	p := validPayload()
	p["moles"] = []any{map[string]any{"position": "眉中", "nature": "吉", "meaning": "聪明"}}
	r, err := Parse(encode(t, p))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.Moles) != 1 || r.Moles[0].Nature != MoleAuspicious {
		t.Errorf("unexpected moles: %+v", r.Moles)
	}

	p["moles"] = []any{}
	r, err = Parse(encode(t, p))
	if err != nil {
		t.Fatalf("Parse with empty moles: %v", err)
	}
	if len(r.Moles) != 0 {
		t.Errorf("expected no moles, got %+v", r.Moles)
	}

	p["moles"] = []any{map[string]any{"position": "眉中", "nature": "好", "meaning": "聪明"}}
	if _, err := Parse(encode(t, p)); !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("expected validation_error for bad nature, got %v", err)
	}
}

func TestParseExtended(t *testing.T) {
	r, err := ParseExtended(encode(t, extendedPayload()))
	if err != nil {
		t.Fatalf("ParseExtended: %v", err)
	}
	if r.Headline == nil || r.Headline.Verse != "火旺之相" {
		t.Errorf("unexpected headline: %+v", r.Headline)
	}
	if r.ExtendedLog == nil || r.ExtendedLog.RiskNotes != "注意作息" {
		t.Errorf("unexpected extended log: %+v", r.ExtendedLog)
	}

	for _, field := range []string{"headline", "extendedLog"} {
		p := extendedPayload()
		delete(p, field)
		if _, err := ParseExtended(encode(t, p)); !apperrors.Is(err, apperrors.KindValidation) {
			t.Errorf("missing %s: expected validation_error, got %v", field, err)
		}
		if _, err := Parse(encode(t, p)); err != nil {
			t.Errorf("missing %s: Parse should accept it, got %v", field, err)
		}
	}
}

func observationsPayload(n int, region string) string {
	obs := make([]map[string]any, n)
	for i := range obs {
		obs[i] = map[string]any{
			"feature":      "眉毛",
			"region":       region,
			"evidence":     "浓密",
			"significance": "意志坚定",
		}
	}
	data, _ := json.Marshal(map[string]any{"observations": obs})
	return string(data)
}

func TestParseObservations(t *testing.T) {
	obs, err := ParseObservations(observationsPayload(6, "left_cheek"))
	if err != nil {
		t.Fatalf("ParseObservations: %v", err)
	}
	if len(obs) != 6 || obs[0].Region != RegionLeftCheek {
		t.Errorf("unexpected observations: %+v", obs)
	}

	cases := map[string]string{
		"empty":      observationsPayload(0, "eyes"),
		"too many":   observationsPayload(9, "eyes"),
		"bad region": observationsPayload(6, "ear"),
		"missing":    `{"notes": []}`,
	}
	for name, raw := range cases {
		if _, err := ParseObservations(raw); !apperrors.Is(err, apperrors.KindValidation) {
			t.Errorf("%s: expected validation_error, got %v", name, err)
		}
	}

	if _, err := ParseObservations("observations: none"); !apperrors.Is(err, apperrors.KindMalformedResponse) {
		t.Errorf("expected malformed_response, got %v", err)
	}
}

func TestParseEnums(t *testing.T) {
	if c, err := ParseCategory(" 金 "); err != nil || c != CategoryMetal {
		t.Errorf("ParseCategory: got %q, %v", c, err)
	}
	if _, err := ParseCategory("Fire"); err == nil {
		t.Error("expected translated category to be rejected")
	}
	if r, err := ParseRegion("Whole Face"); err != nil || r != RegionWholeFace {
		t.Errorf("ParseRegion: got %q, %v", r, err)
	}
	if _, err := ParseSectionStatus("差"); err == nil {
		t.Error("expected unknown status to be rejected")
	}
}

func TestSchemas(t *testing.T) {
	schema := Schema()
	required, _ := schema["required"].([]string)
	if len(required) != 13 {
		t.Errorf("expected 13 required fields, got %d: %v", len(required), required)
	}
	if schema["additionalProperties"] != false {
		t.Error("expected additionalProperties false")
	}

	moles, ok := schema["properties"].(map[string]any)["moles"].(map[string]any)
	if !ok || moles["type"] != "array" {
		t.Fatalf("schema should list moles as an array, got %v", moles)
	}
	if !strings.Contains(SchemaJSON(moles), `"吉"`) {
		t.Error("mole schema should enumerate natures")
	}

	ext := ExtendedSchema()
	props := ext["properties"].(map[string]any)
	for _, name := range []string{"headline", "extendedLog", "moles"} {
		if _, ok := props[name]; !ok {
			t.Errorf("extended schema is missing %s", name)
		}
	}
	if _, ok := props["observations"]; ok {
		t.Error("extended schema should not request observations")
	}

	if !strings.Contains(SchemaJSON(ObservationsSchema()), `"left-cheek"`) {
		t.Error("observation schema should enumerate regions")
	}
}

func FuzzParseCategory(f *testing.F) {
	for _, c := range Categories {
		f.Add(string(c))
	}
	f.Add("fire")
	f.Add("火火")
	f.Add("")

	f.Fuzz(func(t *testing.T, s string) {
		p := validPayload()
		p["primaryCategory"] = s
		r, err := Parse(encode(t, p))

		_, known := lookup(canonical(s), Categories)
		if known {
			if err != nil {
				t.Fatalf("category %q should be accepted: %v", s, err)
			}
			if _, ok := lookup(string(r.PrimaryCategory), Categories); !ok {
				t.Fatalf("parsed category %q outside the closed set", r.PrimaryCategory)
			}
			return
		}
		if !apperrors.Is(err, apperrors.KindValidation) {
			t.Fatalf("category %q: expected validation_error, got %v", s, err)
		}
	})
}

func FuzzParseRegion(f *testing.F) {
	for _, r := range Regions {
		f.Add(string(r))
	}
	f.Add("ear")
	f.Add("LEFT_CHEEK")

	f.Fuzz(func(t *testing.T, s string) {
		obs, err := ParseObservations(observationsPayload(6, s))
		if err != nil {
			if !apperrors.Is(err, apperrors.KindValidation) {
				t.Fatalf("region %q: expected validation_error, got %v", s, err)
			}
			return
		}
		for _, o := range obs {
			if _, ok := lookup(string(o.Region), Regions); !ok {
				t.Fatalf("parsed region %q outside the closed set", o.Region)
			}
		}
	})
}

func FuzzParseSectionStatus(f *testing.F) {
	for _, s := range SectionStatuses {
		f.Add(string(s))
	}
	f.Add("差")

	f.Fuzz(func(t *testing.T, s string) {
		p := validPayload()
		p["sections"] = []any{map[string]any{"name": "n", "status": s, "detail": "d"}}
		r, err := Parse(encode(t, p))
		if err != nil {
			if !apperrors.Is(err, apperrors.KindValidation) {
				t.Fatalf("status %q: expected validation_error, got %v", s, err)
			}
			return
		}
		if _, ok := lookup(string(r.Sections[0].Status), SectionStatuses); !ok {
			t.Fatalf("parsed status %q outside the closed set", r.Sections[0].Status)
		}
	})
}
