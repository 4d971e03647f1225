// Package chainpack implements the compact binary serialization format of
// the SHV value model. A single packing-schema byte discriminates each
// value; integers use a variable-length big-endian encoding with expanding
// bit lengths; containers are terminated by a 0xFF byte instead of being
// length-prefixed.
package chainpack

// Packing-schema bytes. Values 0x00-0x3F encode a tiny UInt directly and
// 0x40-0x7F a tiny Int (value = byte - 64); the named bytes below cover
// everything else.
const (
	SchemaNull     byte = 128
	SchemaUInt     byte = 129 // followed by a varuint
	SchemaInt      byte = 130 // followed by a varint
	SchemaDouble   byte = 131 // followed by 8 bytes IEEE-754 little-endian
	SchemaBool     byte = 132 // legacy; canonical bools use SchemaFalse/SchemaTrue
	SchemaBlob     byte = 133 // varuint length + raw bytes
	SchemaString   byte = 134 // varuint length + UTF-8 bytes
	SchemaList     byte = 136 // items until SchemaTerm
	SchemaMap      byte = 137 // (string key, value) pairs until SchemaTerm
	SchemaIMap     byte = 138 // (int key, value) pairs until SchemaTerm
	SchemaMetaMap  byte = 139 // (int-or-string key, value) pairs until SchemaTerm
	SchemaDecimal  byte = 140 // varint mantissa + varint exponent
	SchemaDateTime byte = 141 // varint of the packed msec/offset integer
	SchemaFalse    byte = 253
	SchemaTrue     byte = 254
	SchemaTerm     byte = 255 // container terminator

	schemaDateTimeEpochDepr byte = 135 // retired encodings, rejected on read
	schemaCStringDepr       byte = 142
)

// maxNestingDepth bounds container recursion so hostile input cannot
// exhaust the native stack.
const maxNestingDepth = 96
