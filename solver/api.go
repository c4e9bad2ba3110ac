// Package solver implements the click and slide challenge solvers
// behind a single operation interface. A solver instance is a value: it
// can be copied freely, and copies share nothing mutable beyond the two
// HTTP clients they were seeded with.
package solver

import "net/http"

// VerifyType classifies a challenge as click-kind or slide-kind.
type VerifyType int

const (
	TypeClick VerifyType = iota
	TypeSlide
)

// String returns the wire label for the classification.
func (v VerifyType) String() string {
	if v == TypeClick {
		return "click"
	}
	return "slide"
}

// Api is the operation surface shared by both solver kinds. All methods
// that reach the verification service block on network I/O; callers are
// expected to run them off the request goroutine.
type Api interface {
	// SimpleMatch performs a single-attempt validation of a (gt,
	// challenge) pair.
	SimpleMatch(gt, challenge string) (bool, error)

	// SimpleMatchRetry is SimpleMatch with a bounded internal retry on
	// transient ambiguous outcomes. Retries are invisible to the caller
	// beyond elapsed time and the final outcome.
	SimpleMatchRetry(gt, challenge string) (bool, error)

	// RegisterTest initiates a challenge session against url and
	// returns the identifying (gt, challenge) tokens.
	RegisterTest(url string) (gt, challenge string, err error)

	// GetCS retrieves the challenge components. w may be empty.
	GetCS(gt, challenge, w string) (c []byte, s string, err error)

	// GetType classifies the challenge. Deterministic for fixed inputs.
	GetType(gt, challenge, w string) (VerifyType, error)

	// Verify produces the verification token pair. If w is empty the
	// solver derives one itself.
	Verify(gt, challenge, w string) (validate, seccode string, err error)

	// GenerateW computes the response token required to complete a
	// challenge from its components.
	GenerateW(key, gt, challenge string, c []byte, s string) (string, error)

	// Test runs the full register/retrieve/derive/verify chain against
	// url as an end-to-end smoke test.
	Test(url string) (string, error)

	// UpdateClient replaces the active proxied client. The direct
	// client is untouched.
	UpdateClient(c *http.Client)
}
