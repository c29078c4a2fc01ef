// Package ledger writes transaction and revenue records. It owns reference
// generation, the status state machine and the fee revenue pairing; wallet
// balances are changed by package wallet inside the same store transaction.
package ledger
