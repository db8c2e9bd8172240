// Package process turns host process presence into hub entities.
//
// Each configured watch maps a friendly name to a substring searched for in
// the host's process listing. The watcher owns one process.<name> entity per
// watch and holds its state at "on" while any `ps awx` line contains the
// substring, "off" otherwise. A scan runs at startup and then twice a
// minute, riding the hub's time ticks.
package process
