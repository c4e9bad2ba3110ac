package solver

import "net/http"

// Click solves click-kind challenges. It is value-copyable: a copy is
// an independent working instance sharing only the HTTP clients.
type Click struct {
	session
}

var _ Api = (*Click)(nil)

// NewClick creates a click solver bound to a proxied and a direct
// client.
func NewClick(proxied, direct *http.Client) Click {
	return Click{session: newSession(TypeClick, proxied, direct)}
}

func (c *Click) SimpleMatch(gt, challenge string) (bool, error) {
	return c.simpleMatch(gt, challenge, 0)
}

func (c *Click) SimpleMatchRetry(gt, challenge string) (bool, error) {
	return c.simpleMatchRetry(gt, challenge)
}

func (c *Click) RegisterTest(url string) (string, string, error) {
	return c.registerTest(url)
}

func (c *Click) GetCS(gt, challenge, w string) ([]byte, string, error) {
	return c.getCS(gt, challenge, w)
}

func (c *Click) GetType(gt, challenge, w string) (VerifyType, error) {
	return c.classify(gt, challenge, w)
}

func (c *Click) Verify(gt, challenge, w string) (string, string, error) {
	return c.verify(gt, challenge, w)
}

func (c *Click) GenerateW(key, gt, challenge string, cc []byte, s string) (string, error) {
	return deriveW(key, gt, challenge, cc, s, TypeClick)
}

func (c *Click) Test(url string) (string, error) {
	return c.test(url)
}

func (c *Click) UpdateClient(client *http.Client) {
	c.updateClient(client)
}
