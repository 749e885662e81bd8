package memory

import (
	"testing"

	"github.com/warp/kidledger/ledger"
	"github.com/warp/kidledger/store/storetest"
)

func TestMemory_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store { return New() })
}
