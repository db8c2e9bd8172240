package influxdb

import (
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStateValue writes a numeric entity state to InfluxDB.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Timestamps come from the state change itself so replayed or delayed
// writes land at the right point in the series.
//
// Parameters:
//   - entityID: Entity identifier (e.g., "sensor.hallway_temp")
//   - value: The state parsed as a number
//   - timestamp: When the state changed
//
// Example:
//
//	client.WriteStateValue("sensor.hallway_temp", 21.5, state.LastChanged)
func (c *Client) WriteStateValue(entityID string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"state",
		map[string]string{
			"entity_id": entityID,
			"domain":    entityDomain(entityID),
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteAttributeValue writes a numeric attribute riding on a state change.
//
// Attributes get their own measurement so a single entity can contribute
// several series (brightness, battery, signal strength) without field-name
// collisions.
//
// Parameters:
//   - entityID: Entity identifier
//   - attribute: Attribute name (e.g., "brightness")
//   - value: The numeric attribute value
//   - timestamp: When the state changed
func (c *Client) WriteAttributeValue(entityID, attribute string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"attribute",
		map[string]string{
			"entity_id": entityID,
			"domain":    entityDomain(entityID),
			"attribute": attribute,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("hub_stats",
//	    map[string]string{"hub": "hearth-01"},
//	    map[string]interface{}{"events_per_min": 45.2})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// entityDomain extracts the domain prefix from an entity ID.
// "light.kitchen" -> "light"; IDs without a dot tag as themselves.
func entityDomain(entityID string) string {
	if i := strings.Index(entityID, "."); i > 0 {
		return entityID[:i]
	}
	return entityID
}
