package pdf

import (
	"testing"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidatePDFBytes(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"empty", nil, true},
		{"plain text", []byte("hello world"), true},
		{"header at start", []byte("%PDF-1.7\n%âãÏÓ\n"), false},
		{"header after junk", append([]byte("\xef\xbb\xbf\n"), []byte("%PDF-1.4")...), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePDFBytes(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateQuality(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateQuality(1))
	assert.NoError(t, v.ValidateQuality(100))
	assert.Error(t, v.ValidateQuality(0))
	assert.Error(t, v.ValidateQuality(101))
}

func TestOpen_RejectsNonPDF(t *testing.T) {
	_, err := Open([]byte("not a pdf"))
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestValidateDPI(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateDPI(200))
	assert.Error(t, v.ValidateDPI(10))
	assert.Error(t, v.ValidateDPI(1200))
}
