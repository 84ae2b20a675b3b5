package glossary

import "testing"

func TestFind(t *testing.T) {
	g := New(map[string]string{
		"hostile":   "Unfriendly",
		"corrupted": "Damaged",
	})

	text := "The HOSTILE mobs guard corrupted, glitching chests. Hostile!"
	terms := g.Find(text)

	expected := []Term{
		{Word: "HOSTILE", Definition: "Unfriendly", Offset: 4},
		{Word: "corrupted", Definition: "Damaged", Offset: 23},
		{Word: "Hostile", Definition: "Unfriendly", Offset: 52},
	}
	if len(terms) != len(expected) {
		t.Fatalf("Expected %d terms, got %d: %+v", len(expected), len(terms), terms)
	}
	for i := range expected {
		if terms[i] != expected[i] {
			t.Errorf("Term %d: expected %+v, got %+v", i, expected[i], terms[i])
		}
		if text[terms[i].Offset:terms[i].Offset+len(terms[i].Word)] != terms[i].Word {
			t.Errorf("Term %d offset does not point at the word", i)
		}
	}
}

func TestFind_NoMatches(t *testing.T) {
	if terms := Default.Find("A plain sentence."); len(terms) != 0 {
		t.Errorf("Expected no terms, got %+v", terms)
	}
	var g *Glossary
	if terms := g.Find("hostile"); terms != nil {
		t.Errorf("Expected nil glossary to find nothing")
	}
}

func TestDefine(t *testing.T) {
	def, ok := Default.Define(" Necessary ")
	if !ok || def != "Needed; required" {
		t.Errorf("Expected definition for necessary, got %q, %v", def, ok)
	}
	if _, ok := Default.Define("banana"); ok {
		t.Error("Expected banana to be undefined")
	}
}
