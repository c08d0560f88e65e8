package realtime

import (
	"errors"
	"time"

	"github.com/gorilla/securecookie"
)

const ticketName = "stream-ticket"

var errTicketExpired = errors.New("realtime: ticket expired")

// Tickets issues short-lived signed tokens that authorise one user's event
// stream. Browsers' EventSource cannot send an Authorization header, so the
// client trades its bearer token for a ticket and passes it as ?ticket=.
type Tickets struct {
	sc  *securecookie.SecureCookie
	ttl time.Duration
	now func() time.Time
}

type ticket struct {
	UserID string `json:"u"`
	Exp    int64  `json:"e"`
}

// NewTickets builds a ticket issuer. An empty hashKey generates a random
// per-process key, which only works when one process serves all streams.
func NewTickets(hashKey []byte, ttl time.Duration) *Tickets {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	sc := securecookie.New(hashKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(ttl.Seconds()) + 1)
	return &Tickets{sc: sc, ttl: ttl, now: time.Now}
}

// Issue returns a ticket for userID valid for the configured TTL.
func (t *Tickets) Issue(userID string) (string, error) {
	return t.sc.Encode(ticketName, ticket{UserID: userID, Exp: t.now().Add(t.ttl).Unix()})
}

// Verify returns the user id a ticket was issued for.
func (t *Tickets) Verify(value string) (string, error) {
	var tk ticket
	if err := t.sc.Decode(ticketName, value, &tk); err != nil {
		return "", err
	}
	if t.now().Unix() > tk.Exp {
		return "", errTicketExpired
	}
	return tk.UserID, nil
}

// TTL returns the ticket lifetime.
func (t *Tickets) TTL() time.Duration { return t.ttl }
