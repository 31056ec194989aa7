// Package mock provides a scriptable shortlink minter for tests.
package mock

import "context"

// Minter records mint calls and returns a derived short URL.
type Minter struct {
	// Prefix is prepended to the destination to form the short URL. When
	// empty the destination passes through unchanged.
	Prefix string
	// Err, when set, fails every mint.
	Err error

	Minted []string
}

// Mint implements shortlink.Minter.
func (m *Minter) Mint(_ context.Context, dest string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Minted = append(m.Minted, dest)
	return m.Prefix + dest, nil
}
