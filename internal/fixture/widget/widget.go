// Package widget holds proxy targets used by the tests of this module.
package widget

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"sync"
)

//go:generate go run ../../../cmd/proxygen gen -strategy before -hook observe -type Widget

// Shape is implemented by Widget and by every proxy generated for it.
type Shape interface {
	Area() float64
	Label() string
	Resize(factor float64) error
}

// Number is satisfied by Integer.
type Number interface {
	Float64() float64
}

type Integer int

func (i Integer) Float64() float64 { return float64(i) }

type base struct {
	id string
}

// ID is promoted into Widget.
func (b base) ID() string { return b.id }

// Widget is a plain proxy target with several constructors.
type Widget struct {
	sync.Mutex
	base

	label string
	side  float64
}

func NewWidget() *Widget {
	return &Widget{base: base{id: "w"}, label: "widget", side: 1}
}

func NewWidgetFromBool(square bool) *Widget {
	w := NewWidget()
	if !square {
		w.side = 0
	}
	return w
}

func NewWidgetFromNumber(n Number) *Widget {
	w := NewWidget()
	if n != nil {
		w.side = n.Float64()
	}
	return w
}

func newWidgetWithLabel(label string) *Widget {
	w := NewWidget()
	w.label = label
	return w
}

func (w *Widget) Area() float64 { return w.side * w.side }

func (w *Widget) Label() string { return w.label }

func (w *Widget) Resize(factor float64) error {
	if factor <= 0 {
		return errors.New("widget: factor must be positive")
	}
	w.side *= factor
	return nil
}

// Tag joins the widget label with tags.
func (w *Widget) Tag(sep string, tags ...string) string {
	return strings.Join(append([]string{w.label}, tags...), sep)
}

// Version is never overridden.
//
//proxy:final
func (w *Widget) Version() string { return "v1" }

func (w *Widget) String() string { return w.describe() }

func (w *Widget) describe() string { return fmt.Sprintf("%s(%g)", w.label, w.side) }

var (
	observedMu sync.Mutex
	observed   []string
)

// observe is the hook generated proxies call before delegating.
func observe(recv any, op string) {
	observedMu.Lock()
	defer observedMu.Unlock()
	observed = append(observed, op)
}

// Observed returns and clears the operations routed through proxies.
func Observed() []string {
	observedMu.Lock()
	defer observedMu.Unlock()
	out := observed
	observed = nil
	return out
}

// Final cannot be proxied.
//
//proxy:sealed
type Final struct {
	name string
}

func NewFinal() *Final { return &Final{name: "final"} }

func (f *Final) Name() string { return f.name }

// Secret can only be built inside this package.
type Secret struct{}

func newSecret() *Secret { return &Secret{} }

func (s *Secret) Reveal() string { return "secret" }

// SecretInitializers exposes the unexported constructor so tests can hand
// it to a factory.
var SecretInitializers = []any{newSecret}

// Gauge has a constructor that fails.
type Gauge struct {
	limit int
}

func NewGauge(limit int) (*Gauge, error) {
	if limit < 0 {
		return nil, fmt.Errorf("widget: negative limit %d", limit)
	}
	return &Gauge{limit: limit}, nil
}

// ParseGauge does not follow the New<Type> naming convention.
func ParseGauge(s string) (Gauge, error) {
	var g Gauge
	_, err := fmt.Sscanf(s, "%d", &g.limit)
	return g, err
}

func (g *Gauge) Limit() int { return g.limit }

// Box is a generic proxy target.
type Box[T any] struct {
	v T
}

func NewBox[T any](v T) *Box[T] { return &Box[T]{v: v} }

func (b *Box[T]) Get() T { return b.v }

func (b *Box[T]) Set(v T) { b.v = v }

// Ranked keeps the best value seen per key.
type Ranked[K cmp.Ordered, V fmt.Stringer] struct {
	best map[K]V
}

func NewRanked[E cmp.Ordered, S fmt.Stringer]() *Ranked[E, S] {
	return &Ranked[E, S]{best: make(map[E]S)}
}

func (r *Ranked[K, V]) Put(k K, v V) {
	if cur, ok := r.best[k]; !ok || v.String() > cur.String() {
		r.best[k] = v
	}
}

func (r *Ranked[K, V]) Best(k K) (V, bool) {
	v, ok := r.best[k]
	return v, ok
}
