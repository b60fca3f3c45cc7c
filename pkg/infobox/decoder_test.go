package infobox

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dtnitsch/wiki-harvester/models"
)

const tatooinePayload = `[{"data":[
	{"type":"title","data":{"value":"Tatooine"}},
	{"type":"image","data":[{"url":"https://img.example/tatooine.png","name":"Tatooine.png"}]},
	{"type":"navigation","data":{"value":"<a href=\"/wiki/Template:Planet\">edit</a>"}},
	{"type":"group","data":{"value":[
		{"type":"header","data":{"value":"General information"}},
		{"type":"data","data":{"label":"Climate","value":"Arid"}},
		{"type":"data","data":{"label":"Suns","value":"<a href=\"/wiki/Tatoo_I\">Tatoo I</a><br><a href=\"/wiki/Tatoo_II\">Tatoo II</a>"}}
	]}}
]}]`

func TestDecodeTatooine(t *testing.T) {
	ib, err := Decode([]byte(tatooinePayload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ib.Template == nil || *ib.Template != "Planet" {
		t.Fatalf("Decode() template = %v, want Planet", ib.Template)
	}
	if ib.Title != "Tatooine" {
		t.Errorf("Decode() title = %q, want Tatooine", ib.Title)
	}
	if ib.Image != "https://img.example/tatooine.png" {
		t.Errorf("Decode() image = %q", ib.Image)
	}

	climate, ok := ib.Field("General information", "Climate")
	if !ok {
		t.Fatal("Decode() missing General information/Climate")
	}
	if climate.Value != "Arid" || len(climate.Links) != 0 {
		t.Errorf("Climate = %+v, want value Arid with no links", climate)
	}

	suns, ok := ib.Field("General information", "Suns")
	if !ok {
		t.Fatal("Decode() missing General information/Suns")
	}
	if suns.Value != "Tatoo I\nTatoo II" {
		t.Errorf("Suns value = %q", suns.Value)
	}
	if len(suns.Links) != 2 || suns.Links[1].Href != "/wiki/Tatoo_II" {
		t.Errorf("Suns links = %+v", suns.Links)
	}

	data, err := json.Marshal(ib)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `"General information":{"Climate":{"value":"Arid","links":[]}`
	if !bytes.Contains(data, []byte(want)) {
		t.Errorf("Marshal() = %s, want it to contain %s", data, want)
	}
}

func TestDecodeTemplateFromNavigation(t *testing.T) {
	tests := []struct {
		name string
		nav  string
		want *string
	}{
		{name: "bare template href", nav: `<a href="Template:Foo">Foo</a>`, want: ptr("Foo")},
		{name: "wiki path", nav: `<a href="/wiki/Template:Character">view</a>`, want: ptr("Character")},
		{name: "no anchor", nav: `<span>nothing</span>`, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, _ := json.Marshal(tt.nav)
			raw := `[{"data":[{"type":"navigation","data":{"value":` + string(nav) + `}}]}]`
			ib, err := Decode([]byte(raw))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			switch {
			case tt.want == nil && ib.Template != nil:
				t.Errorf("Decode() template = %q, want nil", *ib.Template)
			case tt.want != nil && (ib.Template == nil || *ib.Template != *tt.want):
				t.Errorf("Decode() template = %v, want %q", ib.Template, *tt.want)
			}
		})
	}
}

func TestDecodeFieldNormalization(t *testing.T) {
	raw := `[{"data":[{"type":"group","data":{"value":[
		{"type":"header","data":{"value":"Info"}},
		{"type":"data","data":{"label":"Terrain<sup>1</sup>","value":"<li>A</li><li>B</li>"}},
		{"type":"data","data":{"label":"Population","value":"200,000<sup>[2]</sup>"}}
	]}}]}]`
	ib, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	terrain, ok := ib.Field("Info", "Terrain")
	if !ok {
		t.Fatalf("Decode() missing Terrain, groups = %v", ib.Groups.Keys())
	}
	if terrain.Value != "A\nB" {
		t.Errorf("Terrain value = %q, want %q", terrain.Value, "A\nB")
	}
	pop, _ := ib.Field("Info", "Population")
	if pop.Value != "200,000" {
		t.Errorf("Population value = %q, want 200,000", pop.Value)
	}
}

func TestDecodeIdempotent(t *testing.T) {
	first, err := Decode([]byte(tatooinePayload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second, err := Decode([]byte(tatooinePayload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Errorf("Decode() not deterministic:\n%s\n%s", a, b)
	}
}

func TestDecodeSkipsBadNodes(t *testing.T) {
	raw := `[{"data":[
		{"type":"panel","data":{"value":"whatever"}},
		{"type":"image","data":"not-an-array"},
		{"type":"title","data":{"value":42}},
		"garbage",
		{"type":"group","data":{"value":[
			{"type":"header","data":{"value":"Kept"}},
			{"type":"data","data":{"label":"A","value":"1"}}
		]}}
	]}]`
	ib, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ib.Image != "" || ib.Title != "" {
		t.Errorf("Decode() kept malformed scalars: image=%q title=%q", ib.Image, ib.Title)
	}
	if _, ok := ib.Field("Kept", "A"); !ok {
		t.Errorf("Decode() dropped valid group, groups = %v", ib.Groups.Keys())
	}
}

func TestDecodeSkipsMalformedFieldKeepsGroup(t *testing.T) {
	raw := `[{"data":[{"type":"group","data":{"value":[
		{"type":"header","data":{"value":"General information"}},
		{"type":"data","data":{"label":"Climate","value":"Arid"}},
		{"type":"data","data":{"label":"Terrain","value":["bad"]}},
		{"type":"data","data":{"label":"Moons","value":3}},
		{"type":"data","data":{"label":"Suns","value":"2"}}
	]}}]}]`
	ib, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	g, ok := ib.Groups.Get("General information")
	if !ok {
		t.Fatalf("Decode() dropped group, groups = %v", ib.Groups.Keys())
	}
	if keys := g.Keys(); len(keys) != 2 || keys[0] != "Climate" || keys[1] != "Suns" {
		t.Errorf("group keys = %v, want [Climate Suns]", keys)
	}
}

func TestDecodeSkipsFieldWithoutLabelOrValue(t *testing.T) {
	raw := `[{"data":[{"type":"group","data":{"value":[
		{"type":"header","data":{"value":"G"}},
		{"type":"data","data":{"value":"first"}},
		{"type":"data","data":{"value":"second"}},
		{"type":"data","data":{"label":"Region"}},
		{"type":"data","data":{"label":"Sector","value":"Arkanis"}}
	]}}]}]`
	ib, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	g, _ := ib.Groups.Get("G")
	if keys := g.Keys(); len(keys) != 1 || keys[0] != "Sector" {
		t.Errorf("group keys = %q, want [Sector]", keys)
	}
}

func TestDecodeRepeatedLabelLastWins(t *testing.T) {
	raw := `[{"data":[{"type":"group","data":{"value":[
		{"type":"header","data":{"value":"G"}},
		{"type":"data","data":{"label":"X","value":"first"}},
		{"type":"data","data":{"label":"Y","value":"y"}},
		{"type":"data","data":{"label":"X","value":"second"}}
	]}}]}]`
	ib, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	g, _ := ib.Groups.Get("G")
	if keys := g.Keys(); len(keys) != 2 || keys[0] != "X" {
		t.Errorf("group keys = %v, want [X Y]", keys)
	}
	if x, _ := g.Get("X"); x.Value != "second" {
		t.Errorf("X = %q, want second", x.Value)
	}
}

func TestDecodeNotPortable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `<html>`},
		{"object", `{"data":[]}`},
		{"empty array", `[]`},
		{"no data", `[{"other":1}]`},
		{"data not array", `[{"data":"x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if !errors.Is(err, ErrNotPortableInfobox) {
				t.Errorf("Decode() error = %v, want ErrNotPortableInfobox", err)
			}
		})
	}
}

func TestDecodedInfoboxRoundTrip(t *testing.T) {
	ib, err := Decode([]byte(tatooinePayload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	data, err := json.Marshal(ib)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back models.DecodedInfobox
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	again, _ := json.Marshal(back)
	if !bytes.Equal(data, again) {
		t.Errorf("round trip changed output:\n%s\n%s", data, again)
	}
	if f, _ := back.Field("General information", "Climate"); f.Label != "Climate" {
		t.Errorf("round trip label = %q, want Climate", f.Label)
	}
}

func ptr(s string) *string { return &s }
