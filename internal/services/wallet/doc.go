/*
Package wallet applies guarded balance changes to user wallets.

Every mutation runs against the repositories.Store handed in by the caller,
which is expected to be the same store transaction that records the matching
ledger entry:

	err := store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
	    if err := ledger.Record(ctx, tx, record); err != nil {
	        return err
	    }
	    _, err := wallets.Debit(ctx, tx, userID, record.Total())
	    return err
	})

Debit is a conditional update at the storage layer and fails with
INSUFFICIENT_BALANCE rather than going negative. Callers that check a balance
before an external call (Reserve) and debit after it hold the per-user lock
from Lock across both steps.

Reads go through a redis snapshot that is invalidated after each commit.
*/
package wallet
