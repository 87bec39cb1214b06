package notification

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsOption(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "serviceAccountKey.json")
	require.NoError(t, os.WriteFile(keyFile, []byte(`{"type":"service_account"}`), 0o600))

	tests := []struct {
		name    string
		file    string
		encoded string
		wantErr string
	}{
		{name: "encoded json", encoded: "eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0="},
		{name: "encoded wins over missing file", file: "/does/not/exist.json", encoded: "eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0="},
		{name: "key file", file: keyFile},
		{name: "bad base64", encoded: "not base64!", wantErr: "failed to decode"},
		{name: "missing file", file: "/does/not/exist.json", wantErr: "not found"},
		{name: "nothing configured", wantErr: "neither"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := credentialsOption(tt.file, tt.encoded)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, opt)
		})
	}
}
