package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("meeting")

	first := gen.Next()
	second := gen.Next()

	if first != "meeting-1" || second != "meeting-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("enrollment")
	_ = gen.Next()
	gen.SetCounter(0)
	gen.SetPrefix("enroll")

	if next := gen.Next(); next != "enroll-1" {
		t.Fatalf("expected enroll-1 after reset, got %q", next)
	}
}
