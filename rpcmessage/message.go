// Package rpcmessage layers the SHV RPC message and frame shapes on top of
// the value model: a rich value whose Value is an integer-keyed map and
// whose metadata envelope carries the routing tags.
package rpcmessage

import (
	"errors"
	"sync/atomic"

	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// Metadata tags common to every value of the global namespace.
const (
	TagMetaTypeID          int32 = 1
	TagMetaTypeNamespaceID int32 = 2
)

// Routing tags of an RPC message's metadata envelope.
const (
	TagRequestID    int32 = 8
	TagShvPath      int32 = 9
	TagMethod       int32 = 10
	TagCallerIDs    int32 = 11
	TagProtocolType int32 = 12
	TagRevCallerIDs int32 = 13
	TagAccessGrant  int32 = 14
	TagTunnelCtl    int32 = 15
	TagUserID       int32 = 16
)

// MetaTypeChainPackRPCMessage is the global-namespace meta type id carried
// by every RPC message under TagMetaTypeID.
const MetaTypeChainPackRPCMessage int64 = 1

// IMap keys of the message payload.
const (
	KeyParams int32 = 1
	KeyResult int32 = 2
	KeyError  int32 = 3
)

// IMap keys of the error payload under KeyError.
const (
	ErrKeyCode    int32 = 1
	ErrKeyMessage int32 = 2
)

var errNotRequest = errors.New("rpcmessage: not a request")

// requestCounter is the process-wide monotonic request id source, the only
// shared state in the package.
var requestCounter atomic.Int64

// NextRequestID returns a fresh request id. Ids are unique within the
// process and strictly increasing.
func NextRequestID() int64 {
	return requestCounter.Add(1)
}

// Message is a typed accessor over an RPC rich value. The kind of message
// follows from two tags: a request carries both a request id and a method,
// a response a request id without a method, a signal a method without a
// request id.
type Message struct {
	rv rpcvalue.RpcValue
}

// NewMessage creates an empty message: an empty IMap tagged as a ChainPack
// RPC message.
func NewMessage() *Message {
	rv := rpcvalue.New(rpcvalue.IMap{})
	meta := rpcvalue.NewMetaMap()
	meta.SetInt(TagMetaTypeID, rpcvalue.New(rpcvalue.Int(MetaTypeChainPackRPCMessage)))
	rv.SetMeta(meta)

	return &Message{rv: rv}
}

// FromRpcValue wraps an already decoded rich value as a message.
func FromRpcValue(rv rpcvalue.RpcValue) *Message {
	return &Message{rv: rv}
}

// NewRequest builds a request for the given path and method with a fresh
// request id. Pass params as the zero RpcValue to omit them.
func NewRequest(shvPath, method string, params rpcvalue.RpcValue) *Message {
	m := NewMessage()
	m.SetRequestID(NextRequestID())
	if shvPath != "" {
		m.SetShvPath(shvPath)
	}
	m.SetMethod(method)
	if !params.IsNull() {
		m.SetParams(params)
	}

	return m
}

// NewSignal builds a signal (method without request id) for the given path
// and method.
func NewSignal(shvPath, method string, params rpcvalue.RpcValue) *Message {
	m := NewMessage()
	if shvPath != "" {
		m.SetShvPath(shvPath)
	}
	m.SetMethod(method)
	if !params.IsNull() {
		m.SetParams(params)
	}

	return m
}

// AsRpcValue exposes the underlying rich value.
func (m *Message) AsRpcValue() rpcvalue.RpcValue { return m.rv }

// Meta returns the metadata envelope, creating it on first use.
func (m *Message) Meta() *rpcvalue.MetaMap {
	if m.rv.Meta() == nil {
		m.rv.SetMeta(rpcvalue.NewMetaMap())
	}

	return m.rv.Meta()
}

// IsRequest reports whether the message carries both a request id and a
// method.
func (m *Message) IsRequest() bool {
	_, hasID := m.RequestID()
	_, hasMethod := m.Method()

	return hasID && hasMethod
}

// IsResponse reports whether the message carries a request id but no
// method.
func (m *Message) IsResponse() bool {
	_, hasID := m.RequestID()
	_, hasMethod := m.Method()

	return hasID && !hasMethod
}

// IsSignal reports whether the message carries a method but no request id.
func (m *Message) IsSignal() bool {
	_, hasID := m.RequestID()
	_, hasMethod := m.Method()

	return !hasID && hasMethod
}

// RequestID returns the request id tag.
func (m *Message) RequestID() (int64, bool) {
	v, ok := m.rv.Meta().IntValue(TagRequestID)
	if !ok {
		return 0, false
	}

	return v.Int(), true
}

// SetRequestID sets the request id tag.
func (m *Message) SetRequestID(id int64) {
	m.Meta().SetInt(TagRequestID, rpcvalue.New(rpcvalue.Int(id)))
}

// ShvPath returns the routing path tag.
func (m *Message) ShvPath() (string, bool) {
	v, ok := m.rv.Meta().IntValue(TagShvPath)
	if !ok {
		return "", false
	}

	return v.Str(), true
}

// SetShvPath sets the routing path tag.
func (m *Message) SetShvPath(path string) {
	m.Meta().SetInt(TagShvPath, rpcvalue.New(rpcvalue.String(path)))
}

// Method returns the method tag.
func (m *Message) Method() (string, bool) {
	v, ok := m.rv.Meta().IntValue(TagMethod)
	if !ok {
		return "", false
	}

	return v.Str(), true
}

// SetMethod sets the method tag.
func (m *Message) SetMethod(method string) {
	m.Meta().SetInt(TagMethod, rpcvalue.New(rpcvalue.String(method)))
}

// AccessGrant returns the access grant tag.
func (m *Message) AccessGrant() (rpcvalue.RpcValue, bool) {
	return m.rv.Meta().IntValue(TagAccessGrant)
}

// SetAccessGrant sets the access grant tag.
func (m *Message) SetAccessGrant(grant rpcvalue.RpcValue) {
	m.Meta().SetInt(TagAccessGrant, grant)
}

// UserID returns the user id tag.
func (m *Message) UserID() (string, bool) {
	v, ok := m.rv.Meta().IntValue(TagUserID)
	if !ok {
		return "", false
	}

	return v.Str(), true
}

// SetUserID sets the user id tag.
func (m *Message) SetUserID(id string) {
	m.Meta().SetInt(TagUserID, rpcvalue.New(rpcvalue.String(id)))
}

// CallerIDs returns the stack of intermediary client ids, oldest first.
// The tag stores a bare Int for a single id and a List for more.
func (m *Message) CallerIDs() []int64 {
	v, ok := m.rv.Meta().IntValue(TagCallerIDs)
	if !ok {
		return nil
	}
	switch val := v.Value().(type) {
	case rpcvalue.Int:
		return []int64{int64(val)}
	case rpcvalue.UInt:
		return []int64{int64(val)}
	case rpcvalue.List:
		ids := make([]int64, 0, len(val))
		for _, item := range val {
			ids = append(ids, item.Int())
		}

		return ids
	}

	return nil
}

// SetCallerIDs replaces the caller-id stack. An empty stack removes the
// tag, a single id stores a bare Int, more store a List.
func (m *Message) SetCallerIDs(ids []int64) {
	switch len(ids) {
	case 0:
		m.Meta().Remove(rpcvalue.IntKey(TagCallerIDs))
	case 1:
		m.Meta().SetInt(TagCallerIDs, rpcvalue.New(rpcvalue.Int(ids[0])))
	default:
		lst := make(rpcvalue.List, 0, len(ids))
		for _, id := range ids {
			lst = append(lst, rpcvalue.New(rpcvalue.Int(id)))
		}
		m.Meta().SetInt(TagCallerIDs, rpcvalue.New(lst))
	}
}

// PushCallerID appends an id to the caller-id stack; brokers do this while
// a request traverses them.
func (m *Message) PushCallerID(id int64) {
	m.SetCallerIDs(append(m.CallerIDs(), id))
}

// PopCallerID removes and returns the topmost caller id; brokers do this
// while a response travels back. It reports false on an empty stack.
func (m *Message) PopCallerID() (int64, bool) {
	ids := m.CallerIDs()
	if len(ids) == 0 {
		return 0, false
	}
	top := ids[len(ids)-1]
	m.SetCallerIDs(ids[:len(ids)-1])

	return top, true
}

// Params returns the request parameters.
func (m *Message) Params() (rpcvalue.RpcValue, bool) {
	v, ok := m.rv.IMap()[KeyParams]

	return v, ok
}

// SetParams sets the request parameters.
func (m *Message) SetParams(params rpcvalue.RpcValue) { m.setKey(KeyParams, params) }

// Result returns the response result.
func (m *Message) Result() (rpcvalue.RpcValue, bool) {
	v, ok := m.rv.IMap()[KeyResult]

	return v, ok
}

// SetResult sets the response result.
func (m *Message) SetResult(result rpcvalue.RpcValue) { m.setKey(KeyResult, result) }

// RpcError is the decoded payload of the error key.
type RpcError struct {
	Code    int64
	Message string
}

// Error returns the response error, if any.
func (m *Message) Error() (RpcError, bool) {
	v, ok := m.rv.IMap()[KeyError]
	if !ok {
		return RpcError{}, false
	}
	em := v.IMap()

	return RpcError{
		Code:    em[ErrKeyCode].Int(),
		Message: em[ErrKeyMessage].Str(),
	}, true
}

// SetError sets the response error.
func (m *Message) SetError(e RpcError) {
	m.setKey(KeyError, rpcvalue.New(rpcvalue.IMap{
		ErrKeyCode:    rpcvalue.New(rpcvalue.Int(e.Code)),
		ErrKeyMessage: rpcvalue.New(rpcvalue.String(e.Message)),
	}))
}

func (m *Message) setKey(key int32, v rpcvalue.RpcValue) {
	im := m.rv.IMap()
	if im == nil {
		im = rpcvalue.IMap{}
		meta := m.rv.Meta()
		m.rv = rpcvalue.New(im)
		m.rv.SetMeta(meta)
	}
	im[key] = v
}

// PrepareResponse builds the response skeleton for a request: same request
// id, same caller-id stack, no method. The caller fills in the result or
// error.
func (m *Message) PrepareResponse() (*Message, error) {
	if !m.IsRequest() {
		return nil, errNotRequest
	}
	resp := NewMessage()
	id, _ := m.RequestID()
	resp.SetRequestID(id)
	if ids := m.CallerIDs(); len(ids) > 0 {
		resp.SetCallerIDs(ids)
	}

	return resp, nil
}
