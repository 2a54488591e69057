package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmailRequest(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"Please email me the latest listings", true},
		{"send me the report", true},
		{"Send the report when you are done", true},
		{"mail to me the summary", true},
		{"EMAIL THE REPORT", true},
		{"could you send the analysis to my email", true},
		{"put the data to email please", true},
		{"email it", true},
		{"send it to my email", true},
		{"send this to email", true},

		{"What is the average condo price in Bangkok?", false},
		{"Show me listings under 5M THB", false},
		{"Is there a mailing list for new projects?", false},
		{"The seller can be reached by mail", false},
		{"sendme the report", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEmailRequest(tt.question), "question: %q", tt.question)
	}
}

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "ana@example.com", ExtractAddress("email the report to ana@example.com please"))
	assert.Equal(t, "first.last@sub.example.co", ExtractAddress("send to first.last@sub.example.co and thanks"))
	assert.Equal(t, "a@b.io", ExtractAddress("a@b.io or c@d.io"))
	assert.Equal(t, "", ExtractAddress("no address here"))
	assert.Equal(t, "", ExtractAddress(""))
}
