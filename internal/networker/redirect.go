package networker

import (
	"errors"
	"metadata-negotiator/internal/domain/data"
	"net/http"
	"sync"
)

// ErrTooManyRedirects is returned from the redirect policy when the hop limit is hit.
var ErrTooManyRedirects = errors.New("too many redirects")

// RedirectObserver is told about every redirect the client follows.
type RedirectObserver interface {
	ObserveRedirect(hop data.RedirectHop)
}

// RedirectRecorder keeps hops in the order they were observed.
type RedirectRecorder struct {
	mu   sync.Mutex
	hops []data.RedirectHop
}

func (r *RedirectRecorder) ObserveRedirect(hop data.RedirectHop) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hops = append(r.hops, hop)
}

// Hops returns a copy of the recorded chain.
func (r *RedirectRecorder) Hops() []data.RedirectHop {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]data.RedirectHop, len(r.hops))
	copy(out, r.hops)
	return out
}

// RedirectPolicy returns a CheckRedirect function that reports each hop to observer
// and stops once maxHops redirects have been followed.
//
// net/http resends 307 and 308 with the original method and body, so a 308 only needs recording here.
func RedirectPolicy(maxHops int, observer RedirectObserver) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		status := 0
		if req.Response != nil {
			status = req.Response.StatusCode
		}

		if observer != nil {
			observer.ObserveRedirect(data.RedirectHop{URL: req.URL.String(), Status: status})
		}

		if maxHops > 0 && len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
