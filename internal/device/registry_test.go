package device

import (
	"context"
	"errors"
	"testing"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	devices map[string]*Device

	createCalls int
	getCalls    int
}

func newMockRepository() *mockRepository {
	return &mockRepository{devices: make(map[string]*Device)}
}

func (m *mockRepository) GetByIEEE(_ context.Context, ieee string) (*Device, error) {
	m.getCalls++
	d, ok := m.devices[ieee]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func (m *mockRepository) List(_ context.Context) ([]Device, error) {
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, d *Device) error {
	m.createCalls++
	if _, ok := m.devices[d.IEEEAddress]; ok {
		return ErrDeviceExists
	}
	m.devices[d.IEEEAddress] = d.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, d *Device) error {
	if _, ok := m.devices[d.IEEEAddress]; !ok {
		return ErrDeviceNotFound
	}
	m.devices[d.IEEEAddress] = d.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, ieee string) error {
	if _, ok := m.devices[ieee]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, ieee)
	return nil
}

func (m *mockRepository) UpdateNetworkAddress(_ context.Context, ieee string, nwk uint16) error {
	d, ok := m.devices[ieee]
	if !ok {
		return ErrDeviceNotFound
	}
	d.NetworkAddress = nwk
	return nil
}

func (m *mockRepository) UpdateInterviewState(_ context.Context, ieee string, state InterviewState) error {
	d, ok := m.devices[ieee]
	if !ok {
		return ErrDeviceNotFound
	}
	d.InterviewState = state
	return nil
}

// mockGroupRepository is an in-memory GroupRepository.
type mockGroupRepository struct {
	groups map[uint16]*Group
}

func newMockGroupRepository() *mockGroupRepository {
	return &mockGroupRepository{groups: make(map[uint16]*Group)}
}

func (m *mockGroupRepository) GetByID(_ context.Context, id uint16) (*Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return g.DeepCopy(), nil
}

func (m *mockGroupRepository) List(_ context.Context) ([]Group, error) {
	out := make([]Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, *g.DeepCopy())
	}
	return out, nil
}

func (m *mockGroupRepository) Create(_ context.Context, g *Group) error {
	if _, ok := m.groups[g.ID]; ok {
		return ErrGroupExists
	}
	m.groups[g.ID] = g.DeepCopy()
	return nil
}

func (m *mockGroupRepository) Update(_ context.Context, g *Group) error {
	if _, ok := m.groups[g.ID]; !ok {
		return ErrGroupNotFound
	}
	m.groups[g.ID] = g.DeepCopy()
	return nil
}

func (m *mockGroupRepository) Delete(_ context.Context, id uint16) error {
	if _, ok := m.groups[id]; !ok {
		return ErrGroupNotFound
	}
	delete(m.groups, id)
	return nil
}

func newTestRegistry() (*Registry, *mockRepository, *mockGroupRepository) {
	repo := newMockRepository()
	groups := newMockGroupRepository()
	return NewRegistry(repo, groups), repo, groups
}

func TestRegistryCreateAndLookup(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	d := testDevice()
	if err := reg.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byIEEE, err := reg.GetByIEEE(ctx, d.IEEEAddress)
	if err != nil {
		t.Fatalf("GetByIEEE: %v", err)
	}
	if byIEEE.NetworkAddress != d.NetworkAddress {
		t.Errorf("network address = %#x", byIEEE.NetworkAddress)
	}

	byNwk, err := reg.GetByNetworkAddress(ctx, d.NetworkAddress)
	if err != nil {
		t.Fatalf("GetByNetworkAddress: %v", err)
	}
	if byNwk.IEEEAddress != d.IEEEAddress {
		t.Errorf("ieee = %q", byNwk.IEEEAddress)
	}
}

func TestRegistryCacheMissFallsBackToRepository(t *testing.T) {
	reg, repo, _ := newTestRegistry()
	ctx := context.Background()

	d := testDevice()
	repo.devices[d.IEEEAddress] = d

	got, err := reg.GetByIEEE(ctx, d.IEEEAddress)
	if err != nil {
		t.Fatalf("GetByIEEE: %v", err)
	}
	if got.IEEEAddress != d.IEEEAddress {
		t.Errorf("ieee = %q", got.IEEEAddress)
	}

	// Second lookup is served from cache.
	calls := repo.getCalls
	if _, err := reg.GetByIEEE(ctx, d.IEEEAddress); err != nil {
		t.Fatalf("second GetByIEEE: %v", err)
	}
	if repo.getCalls != calls {
		t.Error("second lookup hit the repository")
	}
}

func TestRegistryRefreshCacheIndexesNetworkAddresses(t *testing.T) {
	reg, repo, _ := newTestRegistry()
	ctx := context.Background()

	d := testDevice()
	repo.devices[d.IEEEAddress] = d

	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("count = %d", reg.Count())
	}

	got, err := reg.GetByNetworkAddress(ctx, d.NetworkAddress)
	if err != nil {
		t.Fatalf("GetByNetworkAddress: %v", err)
	}
	if got.IEEEAddress != d.IEEEAddress {
		t.Errorf("ieee = %q", got.IEEEAddress)
	}
}

func TestRegistrySetNetworkAddressMovesIndex(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	d := testDevice()
	oldNwk := d.NetworkAddress
	if err := reg.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := reg.SetNetworkAddress(ctx, d.IEEEAddress, 0x2222); err != nil {
		t.Fatalf("SetNetworkAddress: %v", err)
	}

	got, err := reg.GetByNetworkAddress(ctx, 0x2222)
	if err != nil {
		t.Fatalf("GetByNetworkAddress(new): %v", err)
	}
	if got.IEEEAddress != d.IEEEAddress || got.NetworkAddress != 0x2222 {
		t.Errorf("device = %+v", got)
	}

	if _, err := reg.GetByNetworkAddress(ctx, oldNwk); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("old address lookup error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistrySetInterviewState(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	d := testDevice()
	d.InterviewState = InterviewNotStarted
	if err := reg.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := reg.SetInterviewState(ctx, d.IEEEAddress, InterviewSuccessful); err != nil {
		t.Fatalf("SetInterviewState: %v", err)
	}

	got, err := reg.GetByIEEE(ctx, d.IEEEAddress)
	if err != nil {
		t.Fatalf("GetByIEEE: %v", err)
	}
	if !got.Interviewed() {
		t.Errorf("interview state = %q", got.InterviewState)
	}
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	d := testDevice()
	if err := reg.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := reg.GetByIEEE(ctx, d.IEEEAddress)
	if err != nil {
		t.Fatalf("GetByIEEE: %v", err)
	}
	first.Endpoints[0].InputClusters[0] = 0xFFFF
	*first.ModelID = "mutated"

	second, err := reg.GetByIEEE(ctx, d.IEEEAddress)
	if err != nil {
		t.Fatalf("GetByIEEE: %v", err)
	}
	if second.Endpoints[0].InputClusters[0] == 0xFFFF {
		t.Error("cache shares cluster slice with caller")
	}
	if *second.ModelID == "mutated" {
		t.Error("cache shares model pointer with caller")
	}
}

func TestRegistryDeleteEvictsBothIndexes(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	d := testDevice()
	if err := reg.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := reg.Delete(ctx, d.IEEEAddress); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := reg.GetByIEEE(ctx, d.IEEEAddress); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByIEEE error = %v", err)
	}
	if _, err := reg.GetByNetworkAddress(ctx, d.NetworkAddress); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByNetworkAddress error = %v", err)
	}
}

func TestRegistryGetOrCreateGroup(t *testing.T) {
	reg, _, groups := newTestRegistry()
	ctx := context.Background()

	g, err := reg.GetOrCreateGroup(ctx, 7)
	if err != nil {
		t.Fatalf("GetOrCreateGroup: %v", err)
	}
	if g.ID != 7 || len(g.Members) != 0 {
		t.Errorf("group = %+v", g)
	}
	if _, ok := groups.groups[7]; !ok {
		t.Error("group not persisted")
	}

	// Second call returns the stored group rather than recreating it.
	groups.groups[7].Members = []GroupMember{{IEEEAddress: "0x000b57fffe123456", Endpoint: 1}}
	again, err := reg.GetOrCreateGroup(ctx, 7)
	if err != nil {
		t.Fatalf("second GetOrCreateGroup: %v", err)
	}
	if len(again.Members) != 1 {
		t.Errorf("members = %v", again.Members)
	}
}
