package core

import (
	"sort"
	"sync"
)

// ServiceCall is the payload delivered to a service handler.
type ServiceCall struct {
	Domain  string
	Service string
	Data    map[string]any
}

// ServiceFunc handles a service call on a worker goroutine.
type ServiceFunc func(call ServiceCall)

// ServiceRegistry maps domain.service names to handlers and executes them in
// response to call_service events. Because calls travel over the bus, a
// remote-backed hub transparently routes them to the peer that owns the
// handler.
type ServiceRegistry struct {
	bus    Bus
	logger Logger

	mu       sync.RWMutex
	services map[string]map[string]ServiceFunc
}

// NewServiceRegistry creates a registry listening for call_service events
// on bus.
func NewServiceRegistry(bus Bus, logger Logger) *ServiceRegistry {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &ServiceRegistry{
		bus:      bus,
		logger:   logger,
		services: make(map[string]map[string]ServiceFunc),
	}
	bus.Subscribe(EventCallService, r.handleCall)
	return r
}

// Register makes fn available as domain.service. Registering an existing
// name replaces the previous handler.
func (r *ServiceRegistry) Register(domain, service string, fn ServiceFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.services[domain] == nil {
		r.services[domain] = make(map[string]ServiceFunc)
	}
	r.services[domain][service] = fn
	r.logger.Debug("service registered", "domain", domain, "service", service)
}

// HasService reports whether domain.service has a handler.
func (r *ServiceRegistry) HasService(domain, service string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[domain][service]
	return ok
}

// Services returns the registered service names per domain, sorted.
// Feeds GET /api/services.
func (r *ServiceRegistry) Services() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make(map[string][]string, len(r.services))
	for domain, handlers := range r.services {
		names := make([]string, 0, len(handlers))
		for name := range handlers {
			names = append(names, name)
		}
		sort.Strings(names)
		services[domain] = names
	}
	return services
}

// Call invokes domain.service asynchronously by publishing a call_service
// event carrying data plus the routing attributes. There is no result
// channel: the handler runs on a worker sometime later, and calls naming an
// unknown service are dropped by the listener.
func (r *ServiceRegistry) Call(domain, service string, data map[string]any) {
	payload := make(map[string]any, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload[AttrDomain] = domain
	payload[AttrService] = service
	r.bus.Publish(EventCallService, payload, OriginLocal)
}

// handleCall resolves and runs the handler named by a call_service event.
// It already executes on a worker goroutine, so the handler is invoked
// inline rather than re-queued.
func (r *ServiceRegistry) handleCall(e Event) {
	domain, _ := e.Data[AttrDomain].(string)
	service, _ := e.Data[AttrService].(string)

	r.mu.RLock()
	fn := r.services[domain][service]
	r.mu.RUnlock()

	if fn == nil {
		r.logger.Debug("no handler for service call", "domain", domain, "service", service)
		return
	}

	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = v
	}
	delete(data, AttrDomain)
	delete(data, AttrService)

	fn(ServiceCall{Domain: domain, Service: service, Data: data})
}
