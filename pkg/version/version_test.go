package version

import "testing"

func TestGetVersion(t *testing.T) {
	expected := "1.0.0"
	if got := GetVersion(); got != expected {
		t.Errorf("GetVersion() = %v, want %v", got, expected)
	}
}

func TestGetProtocolRevision(t *testing.T) {
	expected := "2026.1"
	if got := GetProtocolRevision(); got != expected {
		t.Errorf("GetProtocolRevision() = %v, want %v", got, expected)
	}
}
