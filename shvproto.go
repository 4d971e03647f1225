// Package shvproto implements the SHV RPC serialization stack: a
// self-describing, dynamically-typed value model with two interoperable
// wire formats.
//
//   - ChainPack: a compact binary format with a variable-length integer
//     encoding and single-byte type schema.
//   - Cpon: a human-readable text format, a superset of JSON with
//     comments, integer-keyed maps, decimals, date-times and metadata
//     envelopes.
//
// # Basic Usage
//
// Parsing and emitting values:
//
//	import "github.com/silicon-heaven/shvproto-go"
//
//	rv, err := shvproto.FromCpon(`<1:"foo">[1, 2, 3]`)
//	if err != nil {
//	    return err
//	}
//	data, _ := shvproto.ToChainPack(rv)   // binary wire form
//	text, _ := shvproto.ToCpon(rv)        // canonical text form
//
// Building values:
//
//	v := shvproto.NewValue(rpcvalue.Map{
//	    "serial": shvproto.NewValue(rpcvalue.Int(42)),
//	    "name":   shvproto.NewValue(rpcvalue.String("pump")),
//	})
//
// ChainPack round-trips every value. Cpon has no Double literal, so a
// Double re-parses as a Decimal, and a Decimal with a positive exponent may
// re-parse with its trailing zeros moved into the mantissa. Both formats
// emit deterministically: Map and IMap entries leave in ascending key
// order, metadata pairs in insertion order.
//
// # Package Structure
//
// This package provides convenience wrappers over the format packages. For
// stream-oriented use or frame handling, use the rpcvalue, cpon, chainpack
// and rpcmessage packages directly.
package shvproto

import (
	"github.com/silicon-heaven/shvproto-go/chainpack"
	"github.com/silicon-heaven/shvproto-go/cpon"
	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// Re-exported core types, so casual callers only import one package.
type (
	RpcValue = rpcvalue.RpcValue
	Value    = rpcvalue.Value
	MetaMap  = rpcvalue.MetaMap
	DateTime = rpcvalue.DateTime
	Decimal  = rpcvalue.Decimal
)

// NewValue wraps a variant into an RpcValue without metadata.
func NewValue(v rpcvalue.Value) RpcValue {
	return rpcvalue.New(v)
}

// FromCpon parses a rich value from Cpon text.
func FromCpon(s string) (RpcValue, error) {
	return cpon.FromCpon(s)
}

// ToCpon serializes a rich value to compact Cpon text.
func ToCpon(v RpcValue) (string, error) {
	return cpon.ToCpon(v)
}

// ToCponIndented serializes a rich value to pretty-printed Cpon text.
func ToCponIndented(v RpcValue, indent string) (string, error) {
	return cpon.ToCponIndented(v, indent)
}

// FromChainPack parses a rich value from ChainPack bytes.
func FromChainPack(data []byte) (RpcValue, error) {
	return chainpack.FromChainPack(data)
}

// ToChainPack serializes a rich value to ChainPack bytes.
func ToChainPack(v RpcValue) ([]byte, error) {
	return chainpack.ToChainPack(v)
}
