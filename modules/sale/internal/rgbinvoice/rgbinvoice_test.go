package rgbinvoice

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		recipientID string
	}{
		{
			name:        "colon separated",
			raw:         "rgb:contract:utxob:5Kd3NBUAdUnhyzenEwVLy9pBKxSwXvE9FMPyR4UKZvpe6E3AgLr",
			recipientID: "utxob:5Kd3NBUAdUnhyzenEwVLy9pBKxSwXvE9FMPyR4UKZvpe6E3AgLr",
		},
		{
			name:        "wallet format with chunks",
			raw:         "rgb:2whUFcH-uexzhGP-JaMz5T1-hSkpc8B-yHNJBKa-kQ9wRHr/RGB20/100+utxob:2Hf5Yq9-Ff3cCaB-ah6iX7L-UtCP7xp-nHgSY3v-Xxs7KXt-dbYYWc",
			recipientID: "utxob:2Hf5Yq9-Ff3cCaB-ah6iX7L-UtCP7xp-nHgSY3v-Xxs7KXt-dbYYWc",
		},
		{
			name:        "slash separated with query",
			raw:         "rgb:contract/RGB20/utxob:2Hf5Yq9Ff3cCaB?expiry=1700000000",
			recipientID: "utxob:2Hf5Yq9Ff3cCaB",
		},
		{
			name:        "binding right after scheme",
			raw:         "rgb:utxob:2Hf5Yq9Ff3cCaB",
			recipientID: "utxob:2Hf5Yq9Ff3cCaB",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inv, err := Parse(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.recipientID, inv.RecipientID)
			assert.NotEmpty(t, inv.Blinding)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"wrong scheme", "lnbc1pvjluezpp5qqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqypq"},
		{"no binding", "rgb:contract/RGB20/100"},
		{"binding glued to previous token", "rgb:contractutxob:2Hf5Yq9Ff3cCaB"},
		{"empty payload", "rgb:contract:utxob:"},
		{"only chunk separators", "rgb:contract:utxob:---"},
		{"not base58", "rgb:contract:utxob:0OIl"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.InvalidArgument))
		})
	}
}
