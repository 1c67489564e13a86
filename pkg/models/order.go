package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidOrder = errors.New("invalid attach order")

// OrderKind is the relative position requested for a classifier on a hook.
type OrderKind uint8

const (
	OrderFirst OrderKind = iota + 1
	OrderLast
	OrderBefore
	OrderAfter
)

// Order is an attach position. Before and After are relative to Peer, the
// name of another instance on the same hook.
type Order struct {
	Kind OrderKind
	Peer string
}

var (
	First = Order{Kind: OrderFirst}
	Last  = Order{Kind: OrderLast}
)

func Before(peer string) Order { return Order{Kind: OrderBefore, Peer: peer} }

func After(peer string) Order { return Order{Kind: OrderAfter, Peer: peer} }

// Relative reports whether the order needs a peer to be resolved.
func (o Order) Relative() bool {
	return o.Kind == OrderBefore || o.Kind == OrderAfter
}

func (o Order) String() string {
	switch o.Kind {
	case OrderFirst:
		return "first"
	case OrderLast:
		return "last"
	case OrderBefore:
		return "before:" + o.Peer
	case OrderAfter:
		return "after:" + o.Peer
	}
	return fmt.Sprintf("order(%d)", o.Kind)
}

// ParseOrder accepts "first", "last", "before:<name>" and "after:<name>".
func ParseOrder(s string) (Order, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "first":
		return First, nil
	case "last":
		return Last, nil
	}
	kind, peer, ok := strings.Cut(s, ":")
	if !ok || peer == "" {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
	switch strings.ToLower(kind) {
	case "before":
		return Before(peer), nil
	case "after":
		return After(peer), nil
	}
	return Order{}, fmt.Errorf("%w: %q", ErrInvalidOrder, s)
}
