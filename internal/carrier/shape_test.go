package carrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferValuePattern(t *testing.T) {
	tests := []struct {
		value string
		want  string
		ok    bool
	}{
		{"ABC123456", `[A-Z]{3}\d{6}`, true},
		{"HO88214567", `[A-Z]{2}\d{8}`, true},
		{"12/31/2024", `\d{1,2}/\d{1,2}/\d{4}`, true},
		{"1/5/2024", `\d{1,2}/\d{1,2}/\d{4}`, true},
		{"$123,456", `\$[\d,]+`, true},
		{"John Smith", `[A-Z][a-z]+ [A-Z][a-z]+(?:\s[A-Z][a-z]+)*`, true},
		{"CLM-2024-01", `[A-Z0-9\-]{9,13}`, true},
		{"JOHN SMITH", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := InferValuePattern(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferValuePatternDeterministic(t *testing.T) {
	first, _ := InferValuePattern("ABC123456")
	for i := 0; i < 5; i++ {
		got, _ := InferValuePattern("ABC123456")
		assert.Equal(t, first, got)
	}
}

func TestExtractContext(t *testing.T) {
	text := "HOMEOWNERS POLICY\nPolicy Number: ABC123456\nNamed Insured: John Smith\n"

	assert.Equal(t, "Policy Number", ExtractContext(text, "ABC123456"))
	assert.Equal(t, "Named Insured", ExtractContext(text, "John Smith"))
	assert.Empty(t, ExtractContext(text, "ZZZ999"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "GEICO", DisplayName("geico"))
	assert.Equal(t, "State Farm Insurance", DisplayName("state_farm"))
	assert.Equal(t, "Acme Mutual", DisplayName("acme_mutual"))
}

func TestDetectStatic(t *testing.T) {
	id, ok := detectStatic("ALLSTATE INSURANCE COMPANY\nYou're in good hands.")
	assert.True(t, ok)
	assert.Equal(t, "allstate", id)

	id, ok = detectStatic("Like a good neighbor, State Farm is there.")
	assert.True(t, ok)
	assert.Equal(t, "state_farm", id)

	_, ok = detectStatic("Unaffiliated claims correspondence.")
	assert.False(t, ok)
}
