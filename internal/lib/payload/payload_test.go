package payload

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase64(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	encoded := base64.StdEncoding.EncodeToString(raw)

	testCases := []struct {
		desc    string
		in      string
		expect  []byte
		wantErr bool
	}{
		{
			desc:   "plain base64",
			in:     encoded,
			expect: raw,
		},
		{
			desc:   "data uri prefix",
			in:     "data:image/jpeg;base64," + encoded,
			expect: raw,
		},
		{
			desc:   "data uri with odd mime",
			in:     "data:image/x-thing;base64," + encoded,
			expect: raw,
		},
		{
			desc:    "not base64",
			in:      "définitely not base64!!",
			wantErr: true,
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			got, err := DecodeBase64(tC.in)
			if tC.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tC.expect, got)
		})
	}
}
