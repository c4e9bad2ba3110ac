package solver

import "net/http"

// Slide solves slide-kind challenges. Same surface as Click; the kinds
// differ in the payload shape submitted to the verification service.
type Slide struct {
	session
}

var _ Api = (*Slide)(nil)

// NewSlide creates a slide solver bound to a proxied and a direct
// client.
func NewSlide(proxied, direct *http.Client) Slide {
	return Slide{session: newSession(TypeSlide, proxied, direct)}
}

func (s *Slide) SimpleMatch(gt, challenge string) (bool, error) {
	return s.simpleMatch(gt, challenge, 0)
}

func (s *Slide) SimpleMatchRetry(gt, challenge string) (bool, error) {
	return s.simpleMatchRetry(gt, challenge)
}

func (s *Slide) RegisterTest(url string) (string, string, error) {
	return s.registerTest(url)
}

func (s *Slide) GetCS(gt, challenge, w string) ([]byte, string, error) {
	return s.getCS(gt, challenge, w)
}

func (s *Slide) GetType(gt, challenge, w string) (VerifyType, error) {
	return s.classify(gt, challenge, w)
}

func (s *Slide) Verify(gt, challenge, w string) (string, string, error) {
	return s.verify(gt, challenge, w)
}

func (s *Slide) GenerateW(key, gt, challenge string, c []byte, ss string) (string, error) {
	return deriveW(key, gt, challenge, c, ss, TypeSlide)
}

func (s *Slide) Test(url string) (string, error) {
	return s.test(url)
}

func (s *Slide) UpdateClient(client *http.Client) {
	s.updateClient(client)
}
