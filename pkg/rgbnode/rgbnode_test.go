package rgbnode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/sendasset":
			var req SendAssetRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.RecipientID == "utxob:locked" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"Node is locked (hint: unlock with /unlock)","code":403}`))
				return
			}
			assert.Equal(t, "rgb:asset1", req.AssetID)
			assert.Equal(t, uint64(1400), req.Amount)
			assert.Equal(t, uint64(DefaultFeeRate), req.FeeRate)
			assert.Equal(t, []string{"rpc://proxy.example.com/json-rpc"}, req.TransportEndpoints)
			_, _ = w.Write([]byte(`{"txid":"7f3c9b"}`))
		case "/assetbalance":
			_, _ = w.Write([]byte(`{"settled":1000000,"future":1000000,"spendable":990000,"offchain_outbound":0,"offchain_inbound":0}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := New(Config{
		URL:                srv.URL,
		AssetID:            "rgb:asset1",
		TransportEndpoints: []string{"rpc://proxy.example.com/json-rpc"},
	})
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := client.SendAsset(ctx, "utxob:2Hf5Yq9Ff3cCaB", 1400)
	require.NoError(t, err)
	assert.Equal(t, "7f3c9b", resp.TxID)

	_, err = client.SendAsset(ctx, "utxob:locked", 1400)
	assert.True(t, errors.Is(err, errs.Closed))
	assert.Contains(t, err.Error(), "Node is locked")

	_, err = client.SendAsset(ctx, "", 1400)
	assert.True(t, errors.Is(err, errs.InvalidArgument))

	balance, err := client.AssetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(990000), balance.Spendable)
}

func TestFindSentTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listtransfers", r.URL.Path)
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rgb:asset1", req["asset_id"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transfers":[
			{"idx":1,"status":"Settled","kind":"Issuance","txid":"","recipient_id":""},
			{"idx":2,"status":"Failed","kind":"Send","txid":"t2","recipient_id":"utxob:a"},
			{"idx":3,"status":"Settled","kind":"Send","txid":"t3","recipient_id":"utxob:a"},
			{"idx":4,"status":"WaitingCounterparty","kind":"ReceiveBlind","txid":"t4","recipient_id":"utxob:b"}
		]}`))
	}))
	defer srv.Close()

	client, err := New(Config{URL: srv.URL, AssetID: "rgb:asset1"})
	require.NoError(t, err)
	ctx := context.Background()

	transfer, err := client.FindSentTransfer(ctx, "utxob:a")
	require.NoError(t, err)
	assert.Equal(t, "t3", transfer.TxID)

	_, err = client.FindSentTransfer(ctx, "utxob:b")
	assert.True(t, errors.Is(err, errs.NotFound))
}
