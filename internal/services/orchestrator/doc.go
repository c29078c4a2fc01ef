// Package orchestrator runs money-moving flows end to end: bank transfers
// through the verify, resolve, transfer saga, and airtime, data and bill
// purchases followed by the loyalty cashback step.
//
// Every flow prices first, then takes the user's wallet lock and checks the
// balance before any provider is called. Ledger records and the wallet debit
// are written in one store transaction only after the provider accepted the
// operation, so a provider failure never needs compensation.
package orchestrator
