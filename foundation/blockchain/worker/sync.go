package worker

import (
	"math/big"
)

// Sync updates the peer list, mempool and blocks.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, peer := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(peer)
		if err != nil {
			w.evHandler("worker: sync: queryPeerStatus: %s: ERROR: %s", peer.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(peerStatus.KnownPeers)

		// Retrieve the mempool from the peer.
		pool, err := w.state.NetRequestPeerMempool(peer)
		if err != nil {
			w.evHandler("worker: sync: retrievePeerMempool: %s: ERROR: %s", peer.Host, err)
		}
		for _, tx := range pool {
			if err := w.state.UpsertNodeTransaction(tx); err != nil {
				continue
			}
			w.evHandler("worker: sync: retrievePeerMempool: %s: Add Tx: %s", peer.Host, tx.SignedTx.Hash())
		}

		// If this peer has a heavier chain, we need its blocks.
		if w.heavier(peerStatus.CumulativeWork) {
			w.evHandler("worker: sync: retrievePeerBlocks: %s: latestBlockNumber[%d]: work[%s]", peer.Host, peerStatus.LatestBlockNumber, peerStatus.CumulativeWork)

			if err := w.state.NetRequestPeerBlocks(peer); err != nil {
				w.evHandler("worker: sync: retrievePeerBlocks: %s: ERROR %s", peer.Host, err)
			}
		}
	}
}

// heavier reports whether the work reported by a peer is more than the work
// of the local canonical chain.
func (w *Worker) heavier(work string) bool {
	peerWork, ok := new(big.Int).SetString(work, 10)
	if !ok {
		return false
	}

	localWork, ok := new(big.Int).SetString(w.state.CanonicalWork(), 10)
	if !ok {
		return true
	}

	return peerWork.Cmp(localWork) > 0
}
