// Package remote links two Hearth instances over the HTTP wire protocol.
//
// A Binding carries the location and shared secret of a peer hub's API and
// caches its validation status. On top of it the package provides three
// layers:
//
//   - Wire helpers (client.go): one function per protocol operation —
//     FireEvent, GetStates, SetState, ConnectForwarding and friends. They
//     return ErrUnreachable for transport failures and *StatusError for
//     unexpected peer responses; callers decide whether to log or abort.
//
//   - Drop-in components: EventBus and StateStore implement core.Bus and
//     core.StateStore against a peer. Locally published events are pushed up
//     the wire instead of dispatched; the state cache is populated by
//     Mirror() and kept current by state_changed events of remote origin.
//     NewHub assembles them into a core.Hub that reads and writes the peer.
//
//   - Forwarder: the server-side half. It replays every local non-tick
//     event to a set of registered peer APIs, deduplicated by host:port.
//     POST /api/event_forwarding drives it.
//
// Time ticks never cross the wire in either direction: every hub runs its
// own ticker and mirroring them would melt the link.
package remote
