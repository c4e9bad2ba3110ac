package solver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gotest.tools/assert"
)

const (
	testGt        = "019924a82c70bb123aae90d483087f94"
	testChallenge = "12ae1159ffdfcbbc306897e8d9bf6d06"
)

// fakeService imitates the verification endpoints the solvers call.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"gt":%q,"challenge":%q}`, testGt, testChallenge)
	})
	mux.HandleFunc("/register-html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<script>var cfg = {gt: %q, challenge: %q};</script>`, testGt, testChallenge)
	})
	mux.HandleFunc("/get.php", func(w http.ResponseWriter, r *http.Request) {
		// JSONP, the way the real service answers.
		fmt.Fprint(w, `geetest_1234({"data":{"c":[12,58,98,36,43,95,62,15,12],"s":"5b1f"}})`)
	})
	mux.HandleFunc("/ajax.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("w") == "" {
			fmt.Fprint(w, `{"data":{"result":"fail"}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"result":"success","validate":"f978bc128f3a","seccode":"f978bc128f3a|jordan"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClick(t *testing.T, srv *httptest.Server) Click {
	t.Helper()
	c := NewClick(srv.Client(), srv.Client())
	c.apiBase = srv.URL
	return c
}

func TestRegisterTestJSON(t *testing.T) {
	srv := fakeService(t)
	c := newTestClick(t, srv)
	gt, challenge, err := c.RegisterTest(srv.URL + "/register")
	assert.NilError(t, err)
	assert.Equal(t, gt, testGt)
	assert.Equal(t, challenge, testChallenge)
}

func TestRegisterTestEmbeddedTokens(t *testing.T) {
	srv := fakeService(t)
	c := newTestClick(t, srv)
	gt, challenge, err := c.RegisterTest(srv.URL + "/register-html")
	assert.NilError(t, err)
	assert.Equal(t, gt, testGt)
	assert.Equal(t, challenge, testChallenge)
}

func TestRegisterTestUnreachable(t *testing.T) {
	c := NewClick(&http.Client{}, &http.Client{})
	_, _, err := c.RegisterTest("http://127.0.0.1:1/challenge")
	assert.ErrorContains(t, err, "register")
}

func TestGetCS(t *testing.T) {
	srv := fakeService(t)
	c := newTestClick(t, srv)
	cc, s, err := c.GetCS(testGt, testChallenge, "")
	assert.NilError(t, err)
	assert.Equal(t, s, "5b1f")
	assert.Equal(t, len(cc), 9)
	assert.Equal(t, cc[0], byte(12))
}

func TestGetCSMissingParams(t *testing.T) {
	srv := fakeService(t)
	c := newTestClick(t, srv)
	_, _, err := c.GetCS("", testChallenge, "")
	assert.ErrorContains(t, err, "required")
}

func TestGetTypeDeterministic(t *testing.T) {
	c := NewClick(&http.Client{}, &http.Client{})
	first, err := c.GetType("abc", "def", "")
	assert.NilError(t, err)
	label := first.String()
	assert.Assert(t, label == "click" || label == "slide")
	for i := 0; i < 16; i++ {
		got, err := c.GetType("abc", "def", "")
		assert.NilError(t, err)
		assert.Equal(t, got, first)
	}

	// Both kinds agree on the classification of the same challenge.
	s := NewSlide(&http.Client{}, &http.Client{})
	got, err := s.GetType("abc", "def", "")
	assert.NilError(t, err)
	assert.Equal(t, got, first)
}

func TestGenerateWDeterministic(t *testing.T) {
	c := NewClick(&http.Client{}, &http.Client{})
	comps := []byte{12, 58, 98, 36, 43, 95, 62, 15, 12}
	w1, err := c.GenerateW("key", testGt, testChallenge, comps, "5b1f")
	assert.NilError(t, err)
	w2, err := c.GenerateW("key", testGt, testChallenge, comps, "5b1f")
	assert.NilError(t, err)
	assert.Equal(t, w1, w2)
	assert.Assert(t, len(w1) > 32)

	// The two kinds derive different tokens from the same components.
	s := NewSlide(&http.Client{}, &http.Client{})
	ws, err := s.GenerateW("key", testGt, testChallenge, comps, "5b1f")
	assert.NilError(t, err)
	assert.Assert(t, ws != w1)
}

func TestGenerateWMissingComponents(t *testing.T) {
	c := NewClick(&http.Client{}, &http.Client{})
	_, err := c.GenerateW("", testGt, testChallenge, []byte{1}, "s")
	assert.ErrorContains(t, err, "key is required")
	_, err = c.GenerateW("key", testGt, testChallenge, nil, "s")
	assert.ErrorContains(t, err, "missing challenge components")
}

func TestVerifyDerivesWWhenAbsent(t *testing.T) {
	srv := fakeService(t)
	c := newTestClick(t, srv)
	validate, seccode, err := c.Verify(testGt, testChallenge, "")
	assert.NilError(t, err)
	assert.Equal(t, validate, "f978bc128f3a")
	assert.Assert(t, strings.HasPrefix(seccode, validate))
}

func TestSimpleMatchMalformed(t *testing.T) {
	c := NewClick(&http.Client{}, &http.Client{})
	_, err := c.SimpleMatch("not-hex", testChallenge)
	assert.ErrorContains(t, err, "malformed gt")
	_, err = c.SimpleMatch(testGt, "short")
	assert.ErrorContains(t, err, "malformed challenge")
}

func TestSimpleMatchRepeatable(t *testing.T) {
	c := NewClick(&http.Client{}, &http.Client{})
	first, firstErr := c.SimpleMatch(testGt, testChallenge)
	for i := 0; i < 8; i++ {
		got, err := c.SimpleMatch(testGt, testChallenge)
		assert.Equal(t, got, first)
		if firstErr == nil {
			assert.NilError(t, err)
		} else {
			assert.ErrorContains(t, err, firstErr.Error())
		}
	}
}

func TestEndToEnd(t *testing.T) {
	srv := fakeService(t)
	c := newTestClick(t, srv)
	outcome, err := c.Test(srv.URL + "/register")
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(outcome, testGt))
}

func TestUpdateClientLeavesDirectAlone(t *testing.T) {
	proxied := &http.Client{}
	direct := &http.Client{}
	c := NewClick(proxied, direct)
	replacement := &http.Client{}
	c.UpdateClient(replacement)
	assert.Assert(t, c.client == replacement)
	assert.Assert(t, c.direct == direct)
}
