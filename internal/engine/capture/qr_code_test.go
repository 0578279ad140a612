package capture

import (
	"bytes"
	"testing"
)

func TestQRCode(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		size    int
		wantErr bool
	}{
		{
			name: "Default size",
			url:  "https://hooks.example.com/capture/5b1f",
			size: 0,
		},
		{
			name: "Valid size",
			url:  "https://hooks.example.com/capture/5b1f",
			size: 256,
		},
		{
			name:    "Size too small",
			url:     "https://hooks.example.com/capture/5b1f",
			size:    100,
			wantErr: true,
		},
		{
			name:    "Size too large",
			url:     "https://hooks.example.com/capture/5b1f",
			size:    5000,
			wantErr: true,
		},
	}

	pngMagic := []byte{0x89, 'P', 'N', 'G'}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QRCode(tt.url, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QRCode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.HasPrefix(got, pngMagic) {
				t.Errorf("QRCode() did not return a PNG")
			}
		})
	}
}
