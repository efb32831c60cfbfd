package errs_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/zimcoin/ledger/business/web/errs"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_FromChain(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
	}

	tt := []table{
		{name: "unknown-block", err: state.ErrUnknownBlock, status: http.StatusNotFound},
		{name: "halted", err: fmt.Errorf("%w: disk full", state.ErrChainHalted), status: http.StatusServiceUnavailable},
		{name: "duplicate-block", err: database.ErrDuplicateBlock, status: http.StatusConflict},
		{name: "duplicate-tx", err: database.ErrDuplicateTransaction, status: http.StatusConflict},
		{name: "double-spend", err: fmt.Errorf("tx[0x01]: %w", database.ErrDoubleSpend), status: http.StatusBadRequest},
	}

	t.Log("Given the need to map chain errors to statuses.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s error.", testID, tst.name)
			{
				trusted := errs.GetTrusted(errs.FromChain(tst.err))
				if trusted == nil || trusted.Status != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould get status %d: %v", failed, testID, tst.status, trusted)
				}
				t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tst.status)
			}
		}
	}
}
