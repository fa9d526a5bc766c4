package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device and group management with caching and thread
// safety. It wraps the repositories and keeps two in-memory indexes: one
// by IEEE address and one by current network address.
//
// The cache is populated on startup via RefreshCache() and kept in sync by
// the mutating operations. All public methods are thread-safe and hand out
// deep copies.
type Registry struct {
	repo   Repository
	groups GroupRepository

	cacheMu sync.RWMutex
	byIEEE  map[string]*Device
	byNwk   map[uint16]string // network address -> IEEE address

	logger Logger
}

// NewRegistry creates a device registry over the given repositories.
func NewRegistry(repo Repository, groups GroupRepository) *Registry {
	return &Registry{
		repo:   repo,
		groups: groups,
		byIEEE: make(map[string]*Device),
		byNwk:  make(map[uint16]string),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// Called on startup before the network comes up.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.byIEEE = make(map[string]*Device, len(devices))
	r.byNwk = make(map[uint16]string, len(devices))
	for i := range devices {
		d := devices[i]
		r.byIEEE[d.IEEEAddress] = d.DeepCopy()
		r.byNwk[d.NetworkAddress] = d.IEEEAddress
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetByIEEE retrieves a device by its IEEE address.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) GetByIEEE(ctx context.Context, ieeeAddress string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.byIEEE[ieeeAddress]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	d, err := r.repo.GetByIEEE(ctx, ieeeAddress)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.byIEEE[d.IEEEAddress] = d.DeepCopy()
	r.byNwk[d.NetworkAddress] = d.IEEEAddress
	r.cacheMu.Unlock()

	return d, nil
}

// GetByNetworkAddress retrieves a device by its current network address.
// Returns ErrDeviceNotFound when no stored device holds that address.
func (r *Registry) GetByNetworkAddress(_ context.Context, networkAddress uint16) (*Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	ieee, ok := r.byNwk[networkAddress]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	cached, ok := r.byIEEE[ieee]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return cached.DeepCopy(), nil
}

// List retrieves all devices.
func (r *Registry) List(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.byIEEE) > 0 {
		devices := make([]Device, 0, len(r.byIEEE))
		for _, d := range r.byIEEE {
			devices = append(devices, *d.DeepCopy())
		}
		return devices, nil
	}

	return r.repo.List(ctx)
}

// Create persists a new device and caches it.
func (r *Registry) Create(ctx context.Context, d *Device) error {
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.byIEEE[d.IEEEAddress] = d.DeepCopy()
	r.byNwk[d.NetworkAddress] = d.IEEEAddress
	r.cacheMu.Unlock()

	r.logger.Info("device created",
		"ieee", d.IEEEAddress, "nwk", d.NetworkAddress, "type", d.Type)
	return nil
}

// Update persists a full device record and refreshes the cache entry.
func (r *Registry) Update(ctx context.Context, d *Device) error {
	if err := r.repo.Update(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if prev, ok := r.byIEEE[d.IEEEAddress]; ok && prev.NetworkAddress != d.NetworkAddress {
		delete(r.byNwk, prev.NetworkAddress)
	}
	r.byIEEE[d.IEEEAddress] = d.DeepCopy()
	r.byNwk[d.NetworkAddress] = d.IEEEAddress
	r.cacheMu.Unlock()

	r.logger.Debug("device updated", "ieee", d.IEEEAddress)
	return nil
}

// Delete removes a device from the store and the cache.
func (r *Registry) Delete(ctx context.Context, ieeeAddress string) error {
	if err := r.repo.Delete(ctx, ieeeAddress); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if prev, ok := r.byIEEE[ieeeAddress]; ok {
		delete(r.byNwk, prev.NetworkAddress)
	}
	delete(r.byIEEE, ieeeAddress)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "ieee", ieeeAddress)
	return nil
}

// SetNetworkAddress moves a device to a new network address, keeping the
// IEEE identity. The previous holder of the address, if any, loses the
// index entry; its record keeps the stale value until its own rejoin.
func (r *Registry) SetNetworkAddress(ctx context.Context, ieeeAddress string, networkAddress uint16) error {
	if err := r.repo.UpdateNetworkAddress(ctx, ieeeAddress, networkAddress); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.byIEEE[ieeeAddress]; ok {
		delete(r.byNwk, cached.NetworkAddress)
		updated := cached.DeepCopy()
		updated.NetworkAddress = networkAddress
		r.byIEEE[ieeeAddress] = updated
	}
	r.byNwk[networkAddress] = ieeeAddress
	r.cacheMu.Unlock()

	r.logger.Debug("device network address updated",
		"ieee", ieeeAddress, "nwk", networkAddress)
	return nil
}

// SetInterviewState records interview progress.
func (r *Registry) SetInterviewState(ctx context.Context, ieeeAddress string, state InterviewState) error {
	if err := r.repo.UpdateInterviewState(ctx, ieeeAddress, state); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.byIEEE[ieeeAddress]; ok {
		updated := cached.DeepCopy()
		updated.InterviewState = state
		r.byIEEE[ieeeAddress] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device interview state updated",
		"ieee", ieeeAddress, "state", state)
	return nil
}

// Count returns the number of cached devices.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.byIEEE)
}

// GetGroup retrieves a group by id.
// Returns ErrGroupNotFound if the group does not exist.
func (r *Registry) GetGroup(ctx context.Context, id uint16) (*Group, error) {
	return r.groups.GetByID(ctx, id)
}

// ListGroups retrieves all groups.
func (r *Registry) ListGroups(ctx context.Context) ([]Group, error) {
	return r.groups.List(ctx)
}

// GetOrCreateGroup returns the stored group with the given id, creating an
// empty one when it does not exist yet.
func (r *Registry) GetOrCreateGroup(ctx context.Context, id uint16) (*Group, error) {
	g, err := r.groups.GetByID(ctx, id)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrGroupNotFound) {
		return nil, err
	}

	g = &Group{ID: id, Members: []GroupMember{}}
	if err := r.groups.Create(ctx, g); err != nil {
		// Lost a race with a concurrent creator; read theirs.
		if errors.Is(err, ErrGroupExists) {
			return r.groups.GetByID(ctx, id)
		}
		return nil, err
	}

	r.logger.Info("group created", "id", id)
	return g, nil
}

// UpdateGroup persists a group's membership.
func (r *Registry) UpdateGroup(ctx context.Context, g *Group) error {
	return r.groups.Update(ctx, g)
}
