package analytics

import (
	"reflect"
	"testing"
)

func TestWordFrequency(t *testing.T) {
	a := &Analytics{}
	got := a.WordFrequency("Tatooine was a desert planet. The Tatooine suns, Tatoo I and Tatoo II, rose in 1977.")
	want := map[string]int{"tatooine": 2, "desert": 1, "planet": 1, "suns": 1, "tatoo": 2, "rose": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WordFrequency() = %v, want %v", got, want)
	}
}

func TestWordFrequencyUnicode(t *testing.T) {
	a := &Analytics{}
	got := a.WordFrequency("Düsseldorf und Köln; Köln!")
	if got["köln"] != 2 || got["düsseldorf"] != 1 || got["und"] != 1 {
		t.Errorf("WordFrequency() = %v", got)
	}
}

func TestIsStopword(t *testing.T) {
	for _, w := range []string{"The", "and", "Appearances", "sources"} {
		if !IsStopword(w) {
			t.Errorf("IsStopword(%q) = false", w)
		}
	}
	if IsStopword("planet") {
		t.Error("IsStopword(planet) = true")
	}
}
