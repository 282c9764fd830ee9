package metrics

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordAuthEvent increments an auth activity counter.
//
// The event name is a tag (low cardinality: login, login_failed,
// refresh, revoke, register). Outcome distinguishes success from the
// rejection reason. Non-blocking; the point is batched and sent
// asynchronously.
func (c *Client) RecordAuthEvent(event, outcome string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"auth_events",
		map[string]string{
			"event":   event,
			"outcome": outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordTokensIssued records how many token pairs were minted, tagged by
// the trigger (login, refresh, register).
func (c *Client) RecordTokensIssued(trigger string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"tokens_issued",
		map[string]string{
			"trigger": trigger,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordRevocationSweep records a DeleteExpired housekeeping run.
func (c *Client) RecordRevocationSweep(removed int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"revocation_sweep",
		nil,
		map[string]interface{}{
			"removed": removed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
