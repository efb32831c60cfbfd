package worker

// expireOperations drops transactions that sat in the mempool too long.
func (w *Worker) expireOperations() {
	w.evHandler("worker: expireOperations: G started")
	defer w.evHandler("worker: expireOperations: G completed")

	for {
		select {
		case <-w.expire.C:
			if !w.isShutdown() {
				if n := w.state.ExpireMempool(w.maxAge); n > 0 {
					w.evHandler("worker: expireOperations: expired Txs[%d]", n)
				}
			}
		case <-w.shut:
			w.evHandler("worker: expireOperations: received shut signal")
			return
		}
	}
}
