package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/peer"
)

// netTimeout bounds every request made to a peer.
const netTimeout = 10 * time.Second

// errPeerNotFound is returned when the peer answers with a 404.
var errPeerNotFound = errors.New("peer: not found")

// =============================================================================

// NetSendBlockToPeers takes the new mined block and sends it to all know peers.
func (s *State) NetSendBlockToPeers(block database.Block) error {
	s.evHandler("state: NetSendBlockToPeers: started")
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	var errs []error
	for _, pr := range s.RetrieveKnownPeers() {
		var status struct {
			Status Status `json:"status"`
		}

		if err := send(http.MethodPost, pr.URL("block/propose"), database.NewBlockData(block), &status); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pr.Host, err))
			continue
		}

		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]: status[%s]", pr, status.Status)
	}

	return errors.Join(errs...)
}

// NetSendTxToPeers shares a new block transaction with the known peers.
func (s *State) NetSendTxToPeers(tx database.BlockTx) {
	s.evHandler("state: NetSendTxToPeers: started")
	defer s.evHandler("state: NetSendTxToPeers: completed")

	// CORE NOTE: Bitcoin does not send the full transaction immediately to save
	// on bandwidth. A node will send the transaction's mempool key first so the
	// receiving node can check if they already have the transaction or not. If
	// the receiving node doesn't have it, then it will request the transaction
	// based on the mempool key it received.

	// For now, the full transaction is sent.
	for _, pr := range s.RetrieveKnownPeers() {
		if err := send(http.MethodPost, pr.URL("tx/submit"), tx, nil); err != nil {
			s.evHandler("state: NetSendTxToPeers: WARNING: %s", err)
		}
	}
}

// NetRequestPeerStatus looks for new nodes on the blockchain by asking
// known nodes for their peer list. New nodes are added to the list.
func (s *State) NetRequestPeerStatus(pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr)

	var ps peer.PeerStatus
	if err := send(http.MethodGet, pr.URL("status"), nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: latest-blknum[%d]: peer-list[%s]", pr, ps.LatestBlockNumber, ps.KnownPeers)

	return ps, nil
}

// NetRequestPeerMempool asks the peer for the transactions in their mempool.
func (s *State) NetRequestPeerMempool(pr peer.Peer) ([]database.BlockTx, error) {
	s.evHandler("state: NetRequestPeerMempool: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerMempool: completed: %s", pr)

	var mempool []database.BlockTx
	if err := send(http.MethodGet, pr.URL("tx/list"), nil, &mempool); err != nil {
		return nil, err
	}

	s.evHandler("state: NetRequestPeerMempool: len[%d]", len(mempool))

	return mempool, nil
}

// NetRequestPeerBlocks queries the specified node asking for the canonical
// blocks after our tip and hands them to the chain. When the peer doesn't
// know our tip we are on a branch it never saw and the request is made
// again from genesis.
func (s *State) NetRequestPeerBlocks(pr peer.Peer) error {
	s.evHandler("state: NetRequestPeerBlocks: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerBlocks: completed: %s", pr)

	// CORE NOTE: Ideally you want to start by pulling just block headers and
	// performing the cryptographic audit so you know your're not being attacked.
	// After that you can start pulling the full block data for each block header.
	// Currently this is a full node only system and needs the transactions to
	// have a complete account database.

	for _, from := range []string{s.CanonicalTip().Hash(), s.GenesisBlock().Hash()} {
		var blocksData []database.BlockData
		err := send(http.MethodGet, pr.URL("block/since/%s", from), nil, &blocksData)
		if errors.Is(err, errPeerNotFound) {
			s.evHandler("state: NetRequestPeerBlocks: peer doesn't know blk[%s]", from)
			continue
		}
		if err != nil {
			return err
		}

		s.evHandler("state: NetRequestPeerBlocks: found blocks[%d]", len(blocksData))

		for _, blockData := range blocksData {
			block, err := database.ToBlock(blockData)
			if err != nil {
				return err
			}

			if _, err := s.ProcessProposedBlock(block); err != nil && !errors.Is(err, database.ErrDuplicateBlock) {
				return err
			}
		}

		return nil
	}

	return fmt.Errorf("%s: peer is on a different chain", pr.Host)
}

// NetRequestAddPeer lets the peer know this node is available.
func (s *State) NetRequestAddPeer(pr peer.Peer) error {
	return send(http.MethodPost, pr.URL("peers"), peer.New(s.host), nil)
}

// =============================================================================

// send is a helper function to send an HTTP request to a node.
func send(method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if dataSend != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := http.Client{Timeout: netTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return errPeerNotFound
	default:
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return errors.New(string(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
