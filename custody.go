package auctionhouse

import (
	"context"

	"github.com/nftbiennial/auctionhouse/schema"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
)

// Custody moves the auctioned unit between accounts. It is the source of
// truth for who holds the unit; the house only triggers transfers. A
// rejected transfer fails the whole enclosing operation.
type Custody interface {
	Transfer(ctx context.Context, asset schema.Asset, from, to string) error
}

// Ledger issues native-currency value transfers. Collect pulls a bid into
// escrow, Pay sends escrowed funds out. Both are synchronous; a failure
// aborts the enclosing operation.
type Ledger interface {
	Collect(ctx context.Context, account string, amount uint64) error
	Pay(ctx context.Context, account string, amount uint64) error
}

type HttpCustody struct {
	cli *gentleman.Client
}

func NewHttpCustody(custodyUrl string) *HttpCustody {
	cli := gentleman.New()
	cli.URL(custodyUrl)
	return &HttpCustody{cli: cli}
}

func (h *HttpCustody) Transfer(ctx context.Context, asset schema.Asset, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := h.cli.Request().Method("POST").Path("/transfer")
	req.Use(body.JSON(map[string]interface{}{
		"contract": asset.CustodyContract,
		"tokenId":  asset.AssetId,
		"from":     from,
		"to":       to,
		"amount":   1,
	}))
	res, err := req.Send()
	if err != nil {
		log.Error("custody transfer", "contract", asset.CustodyContract, "tokenId", asset.AssetId, "err", err)
		return schema.ErrCustodyRejected
	}
	if !res.Ok || gjson.Get(res.String(), "status").String() != "ok" {
		log.Error("custody transfer rejected", "contract", asset.CustodyContract, "tokenId", asset.AssetId,
			"code", res.StatusCode, "body", res.String())
		return schema.ErrCustodyRejected
	}
	return nil
}

type HttpLedger struct {
	cli *gentleman.Client
	// escrow is the account debited by Pay and credited by Collect
	escrow string
}

func NewHttpLedger(ledgerUrl, escrowAccount string) *HttpLedger {
	cli := gentleman.New()
	cli.URL(ledgerUrl)
	return &HttpLedger{cli: cli, escrow: escrowAccount}
}

func (h *HttpLedger) Collect(ctx context.Context, account string, amount uint64) error {
	return h.send(ctx, account, h.escrow, amount)
}

func (h *HttpLedger) Pay(ctx context.Context, account string, amount uint64) error {
	return h.send(ctx, h.escrow, account, amount)
}

func (h *HttpLedger) send(ctx context.Context, from, to string, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := h.cli.Request().Method("POST").Path("/pay")
	req.Use(body.JSON(map[string]interface{}{
		"from":   from,
		"to":     to,
		"amount": amount,
	}))
	res, err := req.Send()
	if err != nil {
		log.Error("ledger pay", "from", from, "to", to, "amount", amount, "err", err)
		return schema.ErrPayoutFailed
	}
	if !res.Ok || gjson.Get(res.String(), "status").String() != "ok" {
		log.Error("ledger pay rejected", "from", from, "to", to, "amount", amount,
			"code", res.StatusCode, "body", res.String())
		return schema.ErrPayoutFailed
	}
	return nil
}
