package access

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ArrivalHeader lets non-browser clients report their first-seen time to
// the access endpoints. Content routes ignore it.
const ArrivalHeader = "X-Arrival-Time"

// Arrival records when this client was first seen. It is written once and
// never overwritten while valid.
type Arrival struct {
	FirstSeen time.Time `json:"first_seen"`
}

// ArrivalStore reads and initializes the arrival marker on HTTP exchanges.
type ArrivalStore struct {
	cookie string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewArrivalStore(cookieName string, ttl time.Duration, secure bool) *ArrivalStore {
	if cookieName == "" {
		cookieName = "arrival_time"
	}
	return &ArrivalStore{cookie: cookieName, ttl: ttl, secure: secure, now: time.Now}
}

// Read returns the arrival recorded in the cookie, or nil when none is
// present or valid.
func (s *ArrivalStore) Read(r *http.Request) *Arrival {
	if c, err := r.Cookie(s.cookie); err == nil {
		return parseArrival(c.Value)
	}
	return nil
}

// ReadReported is Read with a fallback to the client-reported header.
func (s *ArrivalStore) ReadReported(r *http.Request) *Arrival {
	if a := s.Read(r); a != nil {
		return a
	}
	return parseArrival(r.Header.Get(ArrivalHeader))
}

// Ensure returns the cookie arrival or records now as the first-seen time
// and sets the cookie on w.
func (s *ArrivalStore) Ensure(w http.ResponseWriter, r *http.Request) Arrival {
	return s.ensure(w.Header(), s.Read(r))
}

// EnsureReported is Ensure for the access endpoints: it also accepts the
// arrival header and writes to h, which may belong to a websocket upgrade.
func (s *ArrivalStore) EnsureReported(h http.Header, r *http.Request) Arrival {
	return s.ensure(h, s.ReadReported(r))
}

func (s *ArrivalStore) ensure(h http.Header, existing *Arrival) Arrival {
	if existing != nil {
		return *existing
	}
	now := s.now().UTC()
	cookie := &http.Cookie{
		Name:     s.cookie,
		Value:    strconv.FormatInt(now.UnixMilli(), 10),
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		Expires:  now.Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if v := cookie.String(); v != "" {
		h.Add("Set-Cookie", v)
	}
	return Arrival{FirstSeen: now}
}

func parseArrival(raw string) *Arrival {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return nil
	}
	return &Arrival{FirstSeen: time.UnixMilli(ms).UTC()}
}
