// Package parser abstracts the wire codec used for values queueline
// serializes outside the store: session cookie payloads and snapshots.
package parser

import "fmt"

// ErrTypeAssert is returned when a decoded value has an unexpected shape.
var ErrTypeAssert = fmt.Errorf("type assert error")

type Parser interface {
	Marshal(any) ([]byte, error)
	Unmarshal([]byte, any) error
}
