package cuid2

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestEncodeTimestampBase62(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"Zero timestamp", 0, "000000"},
		{"One second", 1, "000001"},
		{"62 seconds", 62, "000010"},
		{"One minute", 60, "00000y"},
		{"One hour", 3600, "0000w4"},
		{"One day", 86400, "000MTY"},
		{"Unix epoch test", 1704067200, "1rK5iq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EncodeTimestampBase62(tt.seconds)
			if result != tt.expected {
				t.Errorf("EncodeTimestampBase62(%d) = %s, want %s", tt.seconds, result, tt.expected)
			}
		})
	}

	result := EncodeTimestampBase62(1234567890)
	for _, c := range result {
		if !strings.ContainsRune(base62Alphabet, c) {
			t.Errorf("Result contains non-base62 character: %c in %s", c, result)
		}
	}
}

func TestGenerateCuidLikeId(t *testing.T) {
	length := 24
	id := generateCuidLikeId(length)

	if len(id) != length {
		t.Errorf("Generated ID length = %d, want %d", len(id), length)
	}

	for _, c := range id {
		if !strings.ContainsRune(base62Alphabet, c) {
			t.Errorf("ID contains non-base62 character: %c in %s", c, id)
		}
	}

	ids := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := generateCuidLikeId(length)
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestGeneratePrefixedId(t *testing.T) {
	id := GeneratePrefixedId("req", PrefixedIdOptions{TimeSortable: true})
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("ID doesn't have expected prefix: got %s, want prefix 'req_'", id)
	}

	parts := strings.Split(id, "_")
	if len(parts) != 2 {
		t.Fatalf("ID format incorrect: %s", id)
	}

	if len(parts[1]) != 24 {
		t.Errorf("Time-sortable ID body should be 24 characters (6 timestamp + 18 random): got %d", len(parts[1]))
	}

	id2 := GeneratePrefixedId("req", PrefixedIdOptions{})
	parts2 := strings.Split(id2, "_")
	if len(parts2) != 2 || len(parts2[1]) != 24 {
		t.Errorf("Pure random ID body should be 24 characters: %s", id2)
	}

	id3 := GeneratePrefixedId("job", PrefixedIdOptions{TimeSortable: true, RandomLength: 10})
	body3 := strings.Split(id3, "_")[1]
	if len(body3) != 16 {
		t.Errorf("Custom length ID body should be 16 characters (6 timestamp + 10 random): got %d", len(body3))
	}
}

func TestGeneratePrefixedIdUniqueness(t *testing.T) {
	ids := make(map[string]bool)

	for i := 0; i < 10000; i++ {
		id := GeneratePrefixedId("req", PrefixedIdOptions{TimeSortable: true})
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestTimeSortability(t *testing.T) {
	extractTimestamp := func(id string) string {
		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			return ""
		}
		return parts[1][:6]
	}

	id1 := GeneratePrefixedId("req", PrefixedIdOptions{TimeSortable: true})
	time.Sleep(10 * time.Millisecond)
	id2 := GeneratePrefixedId("req", PrefixedIdOptions{TimeSortable: true})
	time.Sleep(10 * time.Millisecond)
	id3 := GeneratePrefixedId("req", PrefixedIdOptions{TimeSortable: true})

	if extractTimestamp(id1) > extractTimestamp(id2) {
		t.Errorf("Timestamps not sorted: %s > %s", extractTimestamp(id1), extractTimestamp(id2))
	}
	if extractTimestamp(id2) > extractTimestamp(id3) {
		t.Errorf("Timestamps not sorted: %s > %s", extractTimestamp(id2), extractTimestamp(id3))
	}
}

func TestPrefixedIdFormat(t *testing.T) {
	id := GeneratePrefixedId("req", PrefixedIdOptions{TimeSortable: true})

	if len(id) != 28 {
		t.Errorf("ID length incorrect: got %d, want 28", len(id))
	}

	matched, _ := regexp.MatchString(`^req_[0-9A-Za-z]{24}$`, id)
	if !matched {
		t.Errorf("ID format doesn't match expected pattern: %s", id)
	}
}
