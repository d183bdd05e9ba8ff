package keys

import (
	"encoding/json"
	"time"

	"github.com/relvacode/iso8601"

	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
)

// Expiration is the absolute time when the node expires, as reported by the server.
// It is not recomputed from the TTL, the client and server clocks may differ.
type Expiration struct {
	time.Time
}

func (e *Expiration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.Wrap(err, "expiration must be a string")
	}
	t, err := iso8601.ParseString(str)
	if err != nil {
		return errors.Wrapf(err, `invalid expiration "%s"`, str)
	}
	e.Time = t
	return nil
}

func (e Expiration) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Time.Format(time.RFC3339Nano))
}
