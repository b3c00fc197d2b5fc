package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andenet/shop-backend/internal/models"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "254712345678", "254712345678"},
		{"leading zero", "0712345678", "254712345678"},
		{"bare subscriber number", "712345678", "254712345678"},
		{"bare number starting with one", "110123456", "254110123456"},
		{"spaces and punctuation stripped", "0700 123-456", "254700123456"},
		{"plus prefix", "+254712345678", "254712345678"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhoneRejectsUnknownPrefixes(t *testing.T) {
	for _, input := range []string{"812345678", "44712345678", "9254712345678", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizePhone(input)
			require.Error(t, err)

			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, "phoneNumber")
		})
	}
}
