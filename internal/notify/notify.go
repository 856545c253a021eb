// Package notify carries per-entity change notifications between instances
// that share one store.
//
// A notification names the entity that changed; the receiver re-reads just
// that entity from the store. Two transports are provided: marker files in a
// shared directory watched with fsnotify, and an in-process Bus.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind is the type of entity a notification refers to.
type Kind string

const (
	KindCube    Kind = "cube"
	KindSubCube Kind = "subcube"
)

// Notification announces that one entity was written.
type Notification struct {
	Kind      Kind
	WindowID  string // instance that owns the data
	CubeID    string
	SubCubeID string // empty for KindCube

	// Origin is the instance that made the change; receivers ignore their own.
	Origin string
	At     time.Time
}

// Publisher announces changes.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Publish(context.Context, Notification) error { return nil }

const sep = "_"

// key returns the marker name of n: kind_window_cube[_subcube].
func (n Notification) key() (string, error) {
	parts := []string{string(n.Kind), n.WindowID, n.CubeID}
	if n.Kind == KindSubCube {
		parts = append(parts, n.SubCubeID)
	}
	for _, p := range parts[1:] {
		if p == "" || strings.ContainsAny(p, sep+`/\.`) {
			return "", fmt.Errorf("notify: id %q cannot be used in a marker name", p)
		}
	}
	return strings.Join(parts, sep), nil
}

// parseKey is the inverse of key.
func parseKey(name string) (Notification, error) {
	parts := strings.Split(name, sep)
	if len(parts) < 3 {
		return Notification{}, fmt.Errorf("notify: malformed marker %q", name)
	}
	n := Notification{Kind: Kind(parts[0]), WindowID: parts[1], CubeID: parts[2]}
	switch {
	case n.Kind == KindCube && len(parts) == 3:
	case n.Kind == KindSubCube && len(parts) == 4:
		n.SubCubeID = parts[3]
	default:
		return Notification{}, fmt.Errorf("notify: malformed marker %q", name)
	}
	return n, nil
}
