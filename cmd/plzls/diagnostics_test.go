package main

import "testing"

func TestCheckDocumentRejectsGarbage(t *testing.T) {
	_, ok := checkDocument("not a pz module")
	if ok {
		t.Fatal("expected garbage input to fail verification")
	}
}

func TestCheckDocumentRejectsEmpty(t *testing.T) {
	_, ok := checkDocument("")
	if ok {
		t.Fatal("expected empty document to fail verification")
	}
}
