package rpcmessage

import "github.com/silicon-heaven/shvproto-go/rpcvalue"

// Signature describes a method's parameter/result shape.
type Signature int

const (
	SignatureVoidVoid Signature = iota
	SignatureVoidParam
	SignatureRetVoid
	SignatureRetParam
)

// Method flags.
const (
	FlagNone            uint8 = 0
	FlagIsSignal        uint8 = 1 << 0
	FlagIsGetter        uint8 = 1 << 1
	FlagIsSetter        uint8 = 1 << 2
	FlagLargeResultHint uint8 = 1 << 3
)

// Attribute selectors for the 'dir' method projection.
const (
	DirAttrSignature   uint8 = 1 << 0
	DirAttrFlags       uint8 = 1 << 1
	DirAttrAccessGrant uint8 = 1 << 2
	DirAttrDescription uint8 = 1 << 3
)

// Attribute selectors for the 'ls' method projection.
const (
	LsAttrHasChildren uint8 = 1 << 0
)

// MetaMethod describes one method a node exposes, as reported by the RPC
// 'dir' method.
type MetaMethod struct {
	Name        string
	Signature   Signature
	Flags       uint8
	AccessGrant rpcvalue.RpcValue
	Description string
}

// DirAttributes projects the selected fields into the 'dir' result shape:
// the bare name when the mask is empty, otherwise a List led by the name.
func (mm *MetaMethod) DirAttributes(mask uint8) rpcvalue.RpcValue {
	var lst rpcvalue.List
	if mask&DirAttrSignature != 0 {
		lst = append(lst, rpcvalue.New(rpcvalue.UInt(mm.Signature)))
	}
	if mask&DirAttrFlags != 0 {
		lst = append(lst, rpcvalue.New(rpcvalue.UInt(mm.Flags)))
	}
	if mask&DirAttrAccessGrant != 0 {
		lst = append(lst, mm.AccessGrant.Clone())
	}
	if mask&DirAttrDescription != 0 {
		lst = append(lst, rpcvalue.New(rpcvalue.String(mm.Description)))
	}
	if len(lst) == 0 {
		return rpcvalue.New(rpcvalue.String(mm.Name))
	}
	lst = append(rpcvalue.List{rpcvalue.New(rpcvalue.String(mm.Name))}, lst...)

	return rpcvalue.New(lst)
}
