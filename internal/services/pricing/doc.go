// Package pricing computes transfer fees, bill fees and airtime/data loyalty
// cashback. Every function is deterministic: the daily purchase count is an
// input, the engine never reads the clock or storage.
package pricing
