package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "default port",
			url:      "ftp://data.example.com/datasets/telco_churn.csv",
			wantHost: "data.example.com:21",
			wantPath: "/datasets/telco_churn.csv",
		},
		{
			name:     "explicit port",
			url:      "ftp://data.example.com:2121/telco.csv",
			wantHost: "data.example.com:2121",
			wantPath: "/telco.csv",
		},
		{
			name:    "wrong scheme",
			url:     "https://example.com/file.csv",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_Defaults(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
	assert.Equal(t, "anonymous", f.opts.User)
	assert.Equal(t, "anonymous@", f.opts.Password)
}

func TestNewFTPFetcher_Credentials(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{User: "etl", Password: "secret"})
	assert.Equal(t, "etl", f.opts.User)
	assert.Equal(t, "secret", f.opts.Password)
}
