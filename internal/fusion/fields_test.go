package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declarationsPage = `ALLSTATE FIRE AND CASUALTY
Policy Number: HO8821456
Named Insured: John Smith
Property Address: 123 Main Street, Springfield, IL 62704
Effective Date: 01/15/2024
Expiration Date: 01/15/2025
Insurer: Allstate Fire and Casualty
Coverage A - Dwelling: $250,000
Deductible: $1,000
Total Premium: $1,842
Agent: Mary Johnson
`

func TestParseFields(t *testing.T) {
	fields := ParseFields(declarationsPage)

	assert.Equal(t, "HO8821456", fields["policyNumber"])
	assert.Equal(t, "John Smith", fields["insuredName"])
	assert.Equal(t, "123 Main Street, Springfield, IL 62704", fields["propertyAddress"])
	assert.Equal(t, "01/15/2024", fields["effectiveDate"])
	assert.Equal(t, "01/15/2025", fields["expirationDate"])
	assert.Equal(t, "Allstate Fire and Casualty", fields["insurerName"])
	assert.Equal(t, "$250,000", fields["coverageAmount"])
	assert.Equal(t, "$1,000", fields["deductible"])
	assert.Equal(t, "$1,842", fields["premium"])
	assert.Equal(t, "Mary Johnson", fields["agentName"])

	_, ok := fields["mortgagee"]
	assert.False(t, ok)
	_, ok = fields["loanNumber"]
	assert.False(t, ok)
}

func TestParseFieldsEmptyText(t *testing.T) {
	assert.Empty(t, ParseFields(""))
}

func TestParseFieldsDeterministic(t *testing.T) {
	first := ParseFields(declarationsPage)
	for range 5 {
		require.Equal(t, first, ParseFields(declarationsPage))
	}
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  float64
	}{
		{"policyNumber", "HO8821456", 1.0},
		{"policyNumber", "has spaces 123", 0.3},
		{"policyNumber", "x", 0},
		{"effectiveDate", "01/15/2024", 1.0},
		{"effectiveDate", "January 15, 2024", 0.3},
		{"coverageAmount", "$250,000", 1.0},
		{"coverageAmount", "two hundred", 0.3},
		{"propertyAddress", "123 Main Street", 1.0},
		{"insuredName", "John Smith", 1.0},
		{"agentName", "Mary Johnson", 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			assert.InDelta(t, tt.want, validateField(tt.field, tt.value), 0.001)
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "abc123456", normalizeValue("ABC-123 456"))
	assert.Equal(t, "abc123456", normalizeValue("abc123456"))
	assert.Equal(t, "250000", normalizeValue("$250,000"))
	assert.Equal(t, "", normalizeValue("---"))
}
