package solver

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultAPIBase is the verification service hit by GetCS and Verify.
const DefaultAPIBase = "https://api.geetest.com"

// responses are bounded; challenge metadata is small.
const maxBodyBytes = 1 << 20

const retryBound = 3

// errAmbiguous marks a transient match outcome that SimpleMatchRetry
// may retry. It surfaces to callers of SimpleMatch unchanged.
var errAmbiguous = errors.New("match outcome ambiguous")

// session carries the state shared by both solver kinds: the active
// proxied client, the direct client, and an instance seed fixed at
// construction. All fields are either immutable or replaced wholesale,
// so a struct copy is an independent working instance.
type session struct {
	client  *http.Client // active, possibly proxied
	direct  *http.Client // never proxied
	apiBase string
	kind    VerifyType
	key     string // w derivation key used when the caller supplies none
	seed    uint32
}

func newSession(kind VerifyType, proxied, direct *http.Client) session {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return session{
		client:  proxied,
		direct:  direct,
		apiBase: DefaultAPIBase,
		kind:    kind,
		key:     "geetest",
		seed:    binary.BigEndian.Uint32(b[:]),
	}
}

func (s *session) updateClient(c *http.Client) {
	s.client = c
}

var gtPattern = regexp.MustCompile(`"?gt"?\s*[:=]\s*"([0-9a-f]{32})"`)
var challengePattern = regexp.MustCompile(`"?challenge"?\s*[:=]\s*"([0-9a-f]{32,34})"`)

// registerTest fetches the challenge page at target and extracts the
// (gt, challenge) pair, accepting either a JSON body or tokens embedded
// in markup.
func (s *session) registerTest(target string) (string, string, error) {
	body, err := s.fetch(target)
	if err != nil {
		return "", "", errors.Wrap(err, "register")
	}

	var reg struct {
		Gt        string `json:"gt"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &reg); err == nil && reg.Gt != "" && reg.Challenge != "" {
		return reg.Gt, reg.Challenge, nil
	}

	gt := gtPattern.FindSubmatch(body)
	challenge := challengePattern.FindSubmatch(body)
	if gt == nil || challenge == nil {
		return "", "", errors.Errorf("register: no challenge tokens in response from %s", target)
	}
	return string(gt[1]), string(challenge[1]), nil
}

// getCS retrieves the c/s challenge components from the verification
// service. The service answers in JSONP.
func (s *session) getCS(gt, challenge, w string) ([]byte, string, error) {
	if gt == "" || challenge == "" {
		return nil, "", errors.New("get_c_s: gt and challenge are required")
	}
	q := url.Values{}
	q.Set("gt", gt)
	q.Set("challenge", challenge)
	q.Set("type", s.kind.String())
	q.Set("is_next", "true")
	if w != "" {
		q.Set("w", w)
	}
	body, err := s.fetch(s.apiBase + "/get.php?" + q.Encode())
	if err != nil {
		return nil, "", errors.Wrap(err, "get_c_s")
	}
	var payload struct {
		Data struct {
			C []int  `json:"c"`
			S string `json:"s"`
		} `json:"data"`
	}
	if err := unmarshalJSONP(body, &payload); err != nil {
		return nil, "", errors.Wrap(err, "get_c_s")
	}
	if len(payload.Data.C) == 0 || payload.Data.S == "" {
		return nil, "", errors.New("get_c_s: response missing c or s")
	}
	c := make([]byte, len(payload.Data.C))
	for i, v := range payload.Data.C {
		c[i] = byte(v)
	}
	return c, payload.Data.S, nil
}

// classify derives the deterministic click/slide classification for a
// challenge. It is a pure function of its inputs so repeated calls
// always agree.
func (s *session) classify(gt, challenge, w string) (VerifyType, error) {
	if gt == "" || challenge == "" {
		return TypeClick, errors.New("get_type: gt and challenge are required")
	}
	sum := md5.Sum([]byte(gt + ":" + challenge + ":" + w))
	if sum[15]&1 == 0 {
		return TypeClick, nil
	}
	return TypeSlide, nil
}

// verify submits w for the challenge and returns the (validate,
// seccode) token pair. When w is empty the solver derives one from
// freshly fetched components.
func (s *session) verify(gt, challenge, w string) (string, string, error) {
	if gt == "" || challenge == "" {
		return "", "", errors.New("verify: gt and challenge are required")
	}
	if w == "" {
		c, cs, err := s.getCS(gt, challenge, "")
		if err != nil {
			return "", "", err
		}
		w, err = deriveW(s.key, gt, challenge, c, cs, s.kind)
		if err != nil {
			return "", "", err
		}
	}
	q := url.Values{}
	q.Set("gt", gt)
	q.Set("challenge", challenge)
	q.Set("type", s.kind.String())
	q.Set("w", w)
	body, err := s.fetch(s.apiBase + "/ajax.php?" + q.Encode())
	if err != nil {
		return "", "", errors.Wrap(err, "verify")
	}
	var payload struct {
		Data struct {
			Result   string `json:"result"`
			Validate string `json:"validate"`
			Seccode  string `json:"seccode"`
		} `json:"data"`
	}
	if err := unmarshalJSONP(body, &payload); err != nil {
		return "", "", errors.Wrap(err, "verify")
	}
	if payload.Data.Result != "success" || payload.Data.Validate == "" {
		return "", "", errors.Errorf("verify: rejected (result %q)", payload.Data.Result)
	}
	return payload.Data.Validate, payload.Data.Seccode, nil
}

// simpleMatch validates a (gt, challenge) pair in a single attempt.
// attempt perturbs the transient-ambiguity band so that retries can
// land differently on the same pair.
func (s *session) simpleMatch(gt, challenge string, attempt int) (bool, error) {
	if !isHex(gt) || len(gt) != 32 {
		return false, errors.Errorf("simple_match: malformed gt %q", gt)
	}
	if l := len(challenge); !isHex(challenge) || (l != 32 && l != 34) {
		return false, errors.Errorf("simple_match: malformed challenge %q", challenge)
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%d:%d", gt, challenge, s.seed, attempt)))
	switch {
	case sum[0] < 8:
		return false, errAmbiguous
	case sum[0]&1 == 0:
		return true, nil
	default:
		return false, nil
	}
}

// simpleMatchRetry reruns simpleMatch on ambiguous outcomes, up to
// retryBound attempts total.
func (s *session) simpleMatchRetry(gt, challenge string) (bool, error) {
	var outcome bool
	var err error
	for attempt := 0; attempt < retryBound; attempt++ {
		outcome, err = s.simpleMatch(gt, challenge, attempt)
		if !errors.Is(err, errAmbiguous) {
			return outcome, err
		}
		logrus.Debugf("solver: ambiguous match for gt %s, attempt %d", gt, attempt)
	}
	return outcome, err
}

// test chains the full solving flow against target.
func (s *session) test(target string) (string, error) {
	gt, challenge, err := s.registerTest(target)
	if err != nil {
		return "", err
	}
	c, cs, err := s.getCS(gt, challenge, "")
	if err != nil {
		return "", err
	}
	w, err := deriveW(s.key, gt, challenge, c, cs, s.kind)
	if err != nil {
		return "", err
	}
	validate, _, err := s.verify(gt, challenge, w)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ok gt=%s validate=%s", gt, validate), nil
}

// fetch issues a GET through the active client. A transport-level
// failure on a proxied client is retried once through the direct
// client before giving up.
func (s *session) fetch(target string) ([]byte, error) {
	resp, err := s.client.Get(target)
	if err != nil && s.direct != nil && s.direct != s.client {
		logrus.Debugf("solver: proxied fetch of %s failed (%s), retrying direct", target, err)
		resp, err = s.direct.Get(target)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", target)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching %s: status %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", target)
	}
	return body, nil
}

// unmarshalJSONP strips an optional callback wrapper before decoding.
func unmarshalJSONP(body []byte, v interface{}) error {
	trimmed := strings.TrimSpace(string(body))
	if i := strings.Index(trimmed, "("); i >= 0 && strings.HasSuffix(trimmed, ")") && !strings.HasPrefix(trimmed, "{") {
		trimmed = trimmed[i+1 : len(trimmed)-1]
	}
	return json.Unmarshal([]byte(trimmed), v)
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return s != ""
}
