// Package gateway defines the challenge-solving HTTP API. It decodes
// operation requests, resolves a solver instance for the session, runs
// the blocking operation on the worker bridge, and answers with a
// uniform envelope.
package gateway

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"goji.io"
	"goji.io/pat"

	"gtgate.dev/gtgate/clientpool"
	"gtgate.dev/gtgate/registry"
	"gtgate.dev/gtgate/solver"
	"gtgate.dev/gtgate/workers"
)

// Server is an http.Handler serving the gateway endpoints.
type Server struct {
	*goji.Mux
	pool   *clientpool.Pool
	clicks *registry.Registry[solver.Click]
	slides *registry.Registry[solver.Slide]
	bridge *workers.Pool
}

// New creates a Server admitting up to workersCount concurrent blocking
// operations.
func New(workersCount int) *Server {
	pool := clientpool.New()
	s := &Server{
		Mux:    goji.NewMux(),
		pool:   pool,
		clicks: registry.New(pool, solver.NewClick, (*solver.Click).UpdateClient),
		slides: registry.New(pool, solver.NewSlide, (*solver.Slide).UpdateClient),
		bridge: workers.NewPool(workersCount),
	}
	s.Use(cors.AllowAll().Handler)

	s.Handle(pat.Get("/health"), http.HandlerFunc(health))

	s.Handle(pat.Post("/click/simple_match"), s.simpleMatch(s.resolveClick, false))
	s.Handle(pat.Post("/click/simple_match_retry"), s.simpleMatch(s.resolveClick, true))
	s.Handle(pat.Post("/click/register_test"), s.registerTest(s.resolveClick))
	s.Handle(pat.Post("/click/get_c_s"), s.getCS(s.resolveClick))
	s.Handle(pat.Post("/click/get_type"), s.getType(s.resolveClick))
	s.Handle(pat.Post("/click/verify"), s.verify(s.resolveClick))
	s.Handle(pat.Post("/click/generate_w"), s.generateW(s.resolveClick))
	s.Handle(pat.Post("/click/test"), s.test(s.resolveClick))

	s.Handle(pat.Post("/slide/register_test"), s.registerTest(s.resolveSlide))
	s.Handle(pat.Post("/slide/get_c_s"), s.getCS(s.resolveSlide))
	s.Handle(pat.Post("/slide/get_type"), s.getType(s.resolveSlide))
	s.Handle(pat.Post("/slide/verify"), s.verify(s.resolveSlide))
	s.Handle(pat.Post("/slide/generate_w"), s.generateW(s.resolveSlide))
	s.Handle(pat.Post("/slide/test"), s.test(s.resolveSlide))

	return s
}

// Close shuts down the worker bridge. In-flight operations run to
// completion.
func (s *Server) Close() {
	s.bridge.Close()
}

func health(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "OK")
}

// resolver yields a working solver instance for one request.
type resolver func(sessionID, proxy string) (solver.Api, error)

func (s *Server) resolveClick(sessionID, proxy string) (solver.Api, error) {
	c, err := s.clicks.Resolve(sessionID, proxy)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Server) resolveSlide(sessionID, proxy string) (solver.Api, error) {
	sl, err := s.slides.Resolve(sessionID, proxy)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

// decode reads the request body into req. A body that does not decode
// is rejected at the transport level, before any envelope exists.
func decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// dispatch resolves an instance, runs op on the worker bridge, and
// writes the envelope. Resolution and bridge failures are internal
// errors; operation failures are client errors.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, sf sessionFields, resolve resolver, op func(solver.Api) (interface{}, error)) {
	api, err := resolve(sf.SessionID, sf.Proxy)
	if err != nil {
		logrus.Errorf("gateway: resolving instance: %s", err)
		writeEnvelope(w, http.StatusInternalServerError, envelope{Success: false, Error: err.Error()})
		return
	}

	done, err := s.bridge.Submit(r.Context(), func(<-chan struct{}) (interface{}, error) {
		return op(api)
	})
	if err != nil {
		logrus.Errorf("gateway: submitting work: %s", err)
		writeEnvelope(w, http.StatusInternalServerError, envelope{Success: false, Error: err.Error()})
		return
	}

	res := <-done
	if res.Err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Success: false, Error: res.Err.Error()})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: res.Data})
}

func writeEnvelope(w http.ResponseWriter, status int, e envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&e); err != nil {
		logrus.Errorf("gateway: encoding response: %s", err)
	}
}

func (s *Server) simpleMatch(resolve resolver, retry bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req simpleMatchRequest
		if !decode(w, r, &req) {
			return
		}
		s.dispatch(w, r, req.sessionFields, resolve, func(api solver.Api) (interface{}, error) {
			if retry {
				return api.SimpleMatchRetry(req.Gt, req.Challenge)
			}
			return api.SimpleMatch(req.Gt, req.Challenge)
		})
	}
}

func (s *Server) registerTest(resolve resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerTestRequest
		if !decode(w, r, &req) {
			return
		}
		s.dispatch(w, r, req.sessionFields, resolve, func(api solver.Api) (interface{}, error) {
			gt, challenge, err := api.RegisterTest(req.URL)
			if err != nil {
				return nil, err
			}
			return tokenPair{First: gt, Second: challenge}, nil
		})
	}
}

func (s *Server) getCS(resolve resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req getCSRequest
		if !decode(w, r, &req) {
			return
		}
		s.dispatch(w, r, req.sessionFields, resolve, func(api solver.Api) (interface{}, error) {
			c, cs, err := api.GetCS(req.Gt, req.Challenge, req.W)
			if err != nil {
				return nil, err
			}
			return csResponse{C: Bytes(c), S: cs}, nil
		})
	}
}

func (s *Server) getType(resolve resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req getTypeRequest
		if !decode(w, r, &req) {
			return
		}
		s.dispatch(w, r, req.sessionFields, resolve, func(api solver.Api) (interface{}, error) {
			t, err := api.GetType(req.Gt, req.Challenge, req.W)
			if err != nil {
				return nil, err
			}
			return t.String(), nil
		})
	}
}

func (s *Server) verify(resolve resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if !decode(w, r, &req) {
			return
		}
		s.dispatch(w, r, req.sessionFields, resolve, func(api solver.Api) (interface{}, error) {
			validate, seccode, err := api.Verify(req.Gt, req.Challenge, req.W)
			if err != nil {
				return nil, err
			}
			return tokenPair{First: validate, Second: seccode}, nil
		})
	}
}

func (s *Server) generateW(resolve resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateWRequest
		if !decode(w, r, &req) {
			return
		}
		s.dispatch(w, r, req.sessionFields, resolve, func(api solver.Api) (interface{}, error) {
			return api.GenerateW(req.Key, req.Gt, req.Challenge, req.C, req.S)
		})
	}
}

func (s *Server) test(resolve resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req testRequest
		if !decode(w, r, &req) {
			return
		}
		s.dispatch(w, r, req.sessionFields, resolve, func(api solver.Api) (interface{}, error) {
			return api.Test(req.URL)
		})
	}
}
