package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nerrad567/hearth-core/internal/core"
)

// FireEvent publishes an event on the peer's bus. The peer re-fires it with
// remote origin, so it will not bounce back over a forwarding link.
func FireEvent(ctx context.Context, api *Binding, eventType string, data map[string]any) error {
	var form url.Values
	if len(data) > 0 {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encoding event data: %w", err)
		}
		form = url.Values{"event_data": {string(encoded)}}
	}

	status, body, err := api.call(ctx, http.MethodPost, fmt.Sprintf(PathEventsEvent, eventType), form)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{StatusCode: status, Body: string(body)}
	}
	return nil
}

// GetEventListeners returns the peer's listener counts per event type.
func GetEventListeners(ctx context.Context, api *Binding) (map[string]int, error) {
	status, body, err := api.call(ctx, http.MethodGet, PathEvents, nil)
	if err != nil {
		return map[string]int{}, err
	}
	if status != http.StatusOK {
		return map[string]int{}, &StatusError{StatusCode: status, Body: string(body)}
	}

	var decoded struct {
		EventListeners map[string]int `json:"event_listeners"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return map[string]int{}, fmt.Errorf("decoding event listeners: %w", err)
	}
	if decoded.EventListeners == nil {
		return map[string]int{}, nil
	}
	return decoded.EventListeners, nil
}

// GetState queries the peer for one entity. Absent entities (the peer
// answers 422) return nil without error.
func GetState(ctx context.Context, api *Binding, entityID string) (*core.State, error) {
	status, body, err := api.call(ctx, http.MethodGet, fmt.Sprintf(PathStatesEntity, entityID), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, nil
	}

	var dict map[string]any
	if err := json.Unmarshal(body, &dict); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return core.StateFromMap(entityID, dict), nil
}

// GetStates queries every entity state the peer holds. The result is always
// a usable map: transport or decode failures yield an empty one together
// with the error, and entries that do not decode to a state are skipped.
func GetStates(ctx context.Context, api *Binding) (map[string]*core.State, error) {
	states := make(map[string]*core.State)

	status, body, err := api.call(ctx, http.MethodGet, PathStates, nil)
	if err != nil {
		return states, err
	}
	if status != http.StatusOK {
		return states, &StatusError{StatusCode: status, Body: string(body)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return states, fmt.Errorf("decoding states: %w", err)
	}

	for entityID, rawDict := range raw {
		var dict map[string]any
		if err := json.Unmarshal(rawDict, &dict); err != nil {
			continue
		}
		if state := core.StateFromMap(entityID, dict); state != nil {
			states[entityID] = state
		}
	}
	return states, nil
}

// SetState tells the peer to update an entity, creating it on first sight.
// The attributes travel as a JSON-encoded form field.
func SetState(ctx context.Context, api *Binding, entityID, newState string, attributes map[string]any) error {
	if attributes == nil {
		attributes = map[string]any{}
	}
	encoded, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}

	form := url.Values{
		"new_state":  {newState},
		"attributes": {string(encoded)},
	}
	status, body, err := api.call(ctx, http.MethodPost, fmt.Sprintf(PathStatesEntity, entityID), form)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return &StatusError{StatusCode: status, Body: string(body)}
	}
	return nil
}

// IsState reports whether the peer currently holds entityID with the given
// state value. Unknown entities and failed calls report false.
func IsState(ctx context.Context, api *Binding, entityID, state string) bool {
	current, err := GetState(ctx, api, entityID)
	return err == nil && current != nil && current.State == state
}

// GetServices returns the peer's registered services per domain.
func GetServices(ctx context.Context, api *Binding) (map[string][]string, error) {
	status, body, err := api.call(ctx, http.MethodGet, PathServices, nil)
	if err != nil {
		return map[string][]string{}, err
	}
	if status != http.StatusOK {
		return map[string][]string{}, &StatusError{StatusCode: status, Body: string(body)}
	}

	var decoded struct {
		Services map[string][]string `json:"services"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return map[string][]string{}, fmt.Errorf("decoding services: %w", err)
	}
	if decoded.Services == nil {
		return map[string][]string{}, nil
	}
	return decoded.Services, nil
}

// CallService invokes domain.service on the peer by firing a call_service
// event at it. Like local service calls it is asynchronous and best-effort.
func CallService(ctx context.Context, api *Binding, domain, service string, data map[string]any) error {
	eventData := make(map[string]any, len(data)+2)
	for k, v := range data {
		eventData[k] = v
	}
	eventData[core.AttrDomain] = domain
	eventData[core.AttrService] = service
	return FireEvent(ctx, api, core.EventCallService, eventData)
}

// ConnectForwarding asks the hub behind from to forward its events to the
// API described by to. Both hubs share one secret, so from's password
// authenticates the request and credentials the registered target.
func ConnectForwarding(ctx context.Context, from, to *Binding) error {
	form := url.Values{
		"host": {to.Host},
		"port": {strconv.Itoa(to.Port)},
	}
	status, body, err := from.call(ctx, http.MethodPost, PathEventForwarding, form)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{StatusCode: status, Body: string(body)}
	}
	return nil
}

// DisconnectForwarding cancels a forwarding registration made with
// ConnectForwarding. The wire protocol tunnels the delete through a POST
// with a _METHOD override field.
func DisconnectForwarding(ctx context.Context, from, to *Binding) error {
	form := url.Values{
		"host":    {to.Host},
		"port":    {strconv.Itoa(to.Port)},
		"_METHOD": {"DELETE"},
	}
	status, body, err := from.call(ctx, http.MethodPost, PathEventForwarding, form)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{StatusCode: status, Body: string(body)}
	}
	return nil
}
