package binding

import "testing"

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"name": "سارة",
		"user": map[string]any{"tags": []any{"vip", "staff"}},
		"meta": map[string]string{"year": "95"},
	}
	cases := []struct{ in, want string }{
		{"مرحبا ${name}", "مرحبا سارة"},
		{"${user.tags[1]}", "staff"},
		{"Day ${ meta.year }", "Day 95"},
		{"${missing} stays", "${missing} stays"},
		{"${user.tags[7]}", "${user.tags[7]}"},
		{"no placeholders", "no placeholders"},
		{"${name} and ${name}", "سارة and سارة"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, data); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := Interpolate("${name}", nil); got != "${name}" {
		t.Fatalf("nil data should leave text untouched, got %q", got)
	}
}

func TestFileName(t *testing.T) {
	vars := CardVars("محمد العتيبي", "final")
	got := FileName("بطاقة_تهنئة_${name}_اليوم_الوطني", vars, ".png")
	want := "بطاقة_تهنئة_محمد_العتيبي_اليوم_الوطني.png"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := FileName("../${name}", CardVars("a/b", ""), ".pdf"); got != "ab.pdf" {
		t.Fatalf("expected path characters stripped, got %q", got)
	}
	if got := FileName("${name}", CardVars("///", ""), ".jpg"); got != "card.jpg" {
		t.Fatalf("expected fallback name, got %q", got)
	}
}
