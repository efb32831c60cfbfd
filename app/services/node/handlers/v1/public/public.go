// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zimcoin/ledger/business/sys/validate"
	"github.com/zimcoin/ledger/business/web/errs"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
	"github.com/zimcoin/ledger/foundation/events"
	"github.com/zimcoin/ledger/foundation/nameservice"
	"github.com/zimcoin/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds new wallet transactions to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Decode the JSON in the post call into a signed transaction.
	var st submitTx
	if err := web.Decode(r, &st); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(st); err != nil {
		return err
	}

	signedTx := st.toSignedTx()

	h.Log.Infow("add tran", "traceid", v.TraceID, "sig:nonce", signedTx, "from", signedTx.FromID, "to", signedTx.ToID, "value", signedTx.Value)

	// Ask the state package to add this transaction to the mempool. Only the
	// checks that don't need the account state happen here.
	if err := h.State.UpsertWalletTransaction(signedTx); err != nil {
		return errs.FromChain(err)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
	}{
		Status: "transaction added to mempool",
		Hash:   signedTx.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Tip returns the canonical tip and the cumulative work behind it.
func (h Handlers) Tip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Block          block  `json:"block"`
		CumulativeWork string `json:"cumulative_work"`
		Orphans        int    `json:"orphans"`
	}{
		Block:          toBlock(h.NS, h.State.CanonicalTip()),
		CumulativeWork: h.State.CanonicalWork(),
		Orphans:        h.State.QueryOrphanCount(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := database.AccountID(web.Param(r, "account"))

	mempool := h.State.RetrieveMempool()

	trans := []tx{}
	for _, tran := range mempool {
		if acct != "" && acct != tran.FromID && acct != tran.ToID {
			continue
		}

		trans = append(trans, toTx(h.NS, tran))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balances for all users.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var accounts []database.Account

	switch accountStr := web.Param(r, "account"); accountStr {
	case "":
		accounts = h.State.RetrieveAccounts().Sorted()

	default:
		accountID, err := database.ToAccountID(accountStr)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		accounts = []database.Account{h.State.QueryAccount(accountID)}
	}

	acts := make([]info, len(accounts))
	for i, account := range accounts {
		acts[i] = info{
			Account: account.AccountID,
			Name:    h.NS.Lookup(account.AccountID),
			Balance: account.Balance,
			Nonce:   account.Nonce,
		}
	}

	ai := actInfo{
		LatestBlock: h.State.CanonicalTip().Hash(),
		Uncommitted: h.State.QueryMempoolLength(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlocksByAccount returns all the canonical blocks that touch the account.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var accountID database.AccountID
	if accountStr := web.Param(r, "account"); accountStr != "" {
		var err error
		if accountID, err = database.ToAccountID(accountStr); err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	dbBlocks := h.State.QueryBlocksByAccount(accountID)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(h.NS, blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}
