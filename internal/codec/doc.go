// Package codec converts between human values and their fixed-width ledger
// encodings: day numbers, fixed-point prices, token base units, GPS
// coordinates, 32-byte identifiers and numeric currency codes.
//
// Every function is pure. Values that cannot be represented exactly are
// rejected with an error matching types.ErrEncoding rather than rounded.
package codec
