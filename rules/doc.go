// Package rules bundles the stock simplification rules and assembles them
// into the universal action tree that every named pipeline is derived from.
package rules
