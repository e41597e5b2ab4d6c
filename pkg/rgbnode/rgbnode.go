// Package rgbnode is a client for the HTTP API of an rgb-lightning-node,
// covering asset transfers to blinded UTXOs, their lookup and asset balances.
package rgbnode

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/pkg/httpclient"
)

const (
	DefaultFeeRate          = 5
	DefaultMinConfirmations = 1
)

type Config struct {
	URL                string        `mapstructure:"url"`
	AssetID            string        `mapstructure:"asset_id"`
	FeeRate            uint64        `mapstructure:"fee_rate"`
	MinConfirmations   uint8         `mapstructure:"min_confirmations"`
	TransportEndpoints []string      `mapstructure:"transport_endpoints"`
	Token              string        `mapstructure:"token"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Debug              bool          `mapstructure:"debug"`
}

type Client struct {
	http   *httpclient.Client
	config Config
}

func New(conf Config) (*Client, error) {
	if conf.URL == "" || conf.AssetID == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "rgb node url and asset id are required")
	}
	headers := map[string]string{"Accept": "application/json"}
	if conf.Token != "" {
		headers["Authorization"] = "Bearer " + conf.Token
	}
	client, err := httpclient.New(conf.URL, httpclient.Config{
		Debug:   conf.Debug,
		Timeout: utils.Default(conf.Timeout, 30*time.Second),
		Headers: headers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create http client")
	}
	conf.FeeRate = utils.Default(conf.FeeRate, DefaultFeeRate)
	conf.MinConfirmations = utils.Default(conf.MinConfirmations, DefaultMinConfirmations)
	return &Client{http: client, config: conf}, nil
}

// AssetID is the asset every transfer of this client moves.
func (c *Client) AssetID() string {
	return c.config.AssetID
}

type SendAssetRequest struct {
	AssetID            string   `json:"asset_id"`
	Amount             uint64   `json:"amount"`
	RecipientID        string   `json:"recipient_id"`
	Donation           bool     `json:"donation"`
	FeeRate            uint64   `json:"fee_rate"`
	MinConfirmations   uint8    `json:"min_confirmations"`
	TransportEndpoints []string `json:"transport_endpoints,omitempty"`
}

type SendAssetResponse struct {
	TxID string `json:"txid"`
}

// SendAsset transfers amount of the configured asset to the blinded UTXO recipientID.
func (c *Client) SendAsset(ctx context.Context, recipientID string, amount uint64) (*SendAssetResponse, error) {
	if recipientID == "" || amount == 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "recipient and a positive amount are required")
	}
	body, err := json.Marshal(SendAssetRequest{
		AssetID:            c.config.AssetID,
		Amount:             amount,
		RecipientID:        recipientID,
		FeeRate:            c.config.FeeRate,
		MinConfirmations:   c.config.MinConfirmations,
		TransportEndpoints: c.config.TransportEndpoints,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal send asset request")
	}
	var out SendAssetResponse
	if err := c.post(ctx, "/sendasset", body, &out); err != nil {
		return nil, errors.Wrapf(err, "can't send %d of asset %s to %s", amount, c.config.AssetID, recipientID)
	}
	if out.TxID == "" {
		return nil, errors.New("rgb node returned an empty txid")
	}
	return &out, nil
}

type AssetBalance struct {
	Settled          uint64 `json:"settled"`
	Future           uint64 `json:"future"`
	Spendable        uint64 `json:"spendable"`
	OffchainOutbound uint64 `json:"offchain_outbound"`
	OffchainInbound  uint64 `json:"offchain_inbound"`
}

func (c *Client) AssetBalance(ctx context.Context) (*AssetBalance, error) {
	body, err := json.Marshal(map[string]string{"asset_id": c.config.AssetID})
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal asset balance request")
	}
	var out AssetBalance
	if err := c.post(ctx, "/assetbalance", body, &out); err != nil {
		return nil, errors.Wrapf(err, "can't get balance of asset %s", c.config.AssetID)
	}
	return &out, nil
}

const (
	TransferKindSend     = "Send"
	TransferStatusFailed = "Failed"
)

type Transfer struct {
	Idx         int64  `json:"idx"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	Status      string `json:"status"`
	Kind        string `json:"kind"`
	TxID        string `json:"txid"`
	RecipientID string `json:"recipient_id"`
}

type listTransfersResponse struct {
	Transfers []Transfer `json:"transfers"`
}

// ListTransfers returns every transfer of the configured asset known to the node.
func (c *Client) ListTransfers(ctx context.Context) ([]Transfer, error) {
	body, err := json.Marshal(map[string]string{"asset_id": c.config.AssetID})
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal list transfers request")
	}
	var out listTransfersResponse
	if err := c.post(ctx, "/listtransfers", body, &out); err != nil {
		return nil, errors.Wrapf(err, "can't list transfers of asset %s", c.config.AssetID)
	}
	return out.Transfers, nil
}

// FindSentTransfer returns the latest outgoing transfer to recipientID that
// did not fail, or errs.NotFound. A blinded UTXO accepts one transfer only,
// so a hit means an earlier send went through even if its response was lost.
func (c *Client) FindSentTransfer(ctx context.Context, recipientID string) (*Transfer, error) {
	transfers, err := c.ListTransfers(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var found *Transfer
	for i := range transfers {
		t := &transfers[i]
		if t.Kind != TransferKindSend || t.RecipientID != recipientID || t.Status == TransferStatusFailed || t.TxID == "" {
			continue
		}
		if found == nil || t.Idx > found.Idx {
			found = t
		}
	}
	if found == nil {
		return nil, errors.Wrapf(errs.NotFound, "no transfer to %s", recipientID)
	}
	return found, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	resp, err := c.http.Post(ctx, path, httpclient.RequestOptions{Body: body})
	if err != nil {
		return errors.WithStack(err)
	}
	if resp.IsSuccess() {
		return errors.WithStack(resp.UnmarshalBody(out))
	}

	message := http.StatusText(resp.StatusCode())
	var e errorResponse
	if resp.UnmarshalBody(&e) == nil && e.Error != "" {
		message = e.Error
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest:
		return errors.Wrap(errs.InvalidArgument, message)
	case http.StatusNotFound:
		return errors.Wrap(errs.NotFound, message)
	case http.StatusForbidden:
		// node is locked or still syncing
		return errors.Wrap(errs.Closed, message)
	}
	return errors.Newf("rgb node responded %d: %s", resp.StatusCode(), message)
}
