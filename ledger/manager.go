package ledger

import (
	"context"
	"fmt"
	"log"

	"fieldcore/store"
)

// Manager provides write-through equipment ledger access: SQL first, then
// Redis. Reads prefer the cache and fall back to SQL. Status and job-claim
// mutations must go through the allocator, which is the only caller of
// Claim/Release/Reassign.
type Manager struct {
	db    *store.DB
	cache *RedisCache
}

func NewManager(db *store.DB, cache *RedisCache) *Manager {
	return &Manager{db: db, cache: cache}
}

func (m *Manager) Get(id int64) (*store.Equipment, error) {
	return m.db.GetEquipment(id)
}

// GetBySerial reads from Redis, falls back to SQL.
func (m *Manager) GetBySerial(displayID string) (*store.Equipment, error) {
	if m.cache != nil {
		if e, err := m.cache.GetItem(context.Background(), displayID); err == nil && e != nil {
			return e, nil
		}
	}
	return m.db.GetEquipmentByDisplayID(displayID)
}

// GetBySerialFresh bypasses the cache. Sync passes use this so a stale cache
// entry cannot mask a divergence.
func (m *Manager) GetBySerialFresh(displayID string) (*store.Equipment, error) {
	return m.db.GetEquipmentByDisplayID(displayID)
}

func (m *Manager) List(f store.EquipmentFilter) ([]*store.Equipment, error) {
	return m.db.ListEquipment(f)
}

func (m *Manager) Create(e *store.Equipment) error {
	if e.Status != "" && !Status(e.Status).Valid() {
		return fmt.Errorf("invalid equipment status: %s", e.Status)
	}
	if err := m.db.CreateEquipment(e); err != nil {
		return err
	}
	m.refreshCache(e.DisplayID)
	return nil
}

// Update applies a partial patch read-modify-write.
func (m *Manager) Update(id int64, p Patch) (*store.Equipment, error) {
	e, err := m.db.GetEquipment(id)
	if err != nil {
		return nil, err
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, fmt.Errorf("invalid equipment status: %s", *p.Status)
		}
		e.Status = string(*p.Status)
	}
	if p.ClearJob {
		e.JobID = nil
	} else if p.JobID != nil {
		e.JobID = p.JobID
	}
	if p.LocationID != nil {
		e.LocationID = *p.LocationID
	}
	if p.LocationType != nil {
		e.LocationType = string(*p.LocationType)
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.Quantity != nil {
		e.Quantity = *p.Quantity
	}
	if err := m.db.UpdateEquipment(e); err != nil {
		return nil, err
	}
	m.checkInvariant(e)
	m.refreshCache(e.DisplayID)
	return e, nil
}

func (m *Manager) Delete(id int64) error {
	e, err := m.db.GetEquipment(id)
	if err != nil {
		return err
	}
	if err := m.db.DeleteEquipment(id); err != nil {
		return err
	}
	if m.cache != nil {
		m.cache.DelItem(context.Background(), e.DisplayID)
	}
	return nil
}

// Claim atomically deploys an item to a job (exclusivity guard in SQL).
func (m *Manager) Claim(id, jobID int64) error {
	if err := m.db.ClaimEquipment(id, jobID); err != nil {
		return err
	}
	m.refreshCacheByID(id)
	return nil
}

// Release returns an item to available with no job claim.
func (m *Manager) Release(id int64) error {
	if err := m.db.ReleaseEquipment(id); err != nil {
		return err
	}
	m.refreshCacheByID(id)
	return nil
}

// Reassign moves a claim between jobs. Only the conflict reconciler's
// move-to-requested path uses this.
func (m *Manager) Reassign(id, toJobID int64) error {
	if err := m.db.ReassignEquipment(id, toJobID); err != nil {
		return err
	}
	m.refreshCacheByID(id)
	return nil
}

// Transfer moves an item physically without touching its job claim.
// Location and job assignment are orthogonal.
func (m *Manager) Transfer(id, toLocationID int64, locType LocationType) (*store.Equipment, error) {
	return m.Update(id, Patch{LocationID: &toLocationID, LocationType: &locType})
}

func (m *Manager) AvailableQuantity(typeID, locationID int64) (float64, error) {
	return m.db.SumAvailableQuantity(typeID, locationID)
}

func (m *Manager) AvailableQuantityElsewhere(typeID, excludeLocationID int64) (float64, error) {
	return m.db.SumAvailableQuantityElsewhere(typeID, excludeLocationID)
}

// Audit scans the whole ledger for at-rest invariant violations.
func (m *Manager) Audit() ([]Violation, error) {
	items, err := m.db.ListEquipment(store.EquipmentFilter{})
	if err != nil {
		return nil, err
	}
	var violations []Violation
	for _, e := range items {
		if v := invariantViolation(e); v != nil {
			violations = append(violations, *v)
		}
	}
	return violations, nil
}

// SyncRedisFromSQL rebuilds all cached ledger state from SQL. Called on startup.
func (m *Manager) SyncRedisFromSQL() error {
	if m.cache == nil {
		return nil
	}
	ctx := context.Background()
	if err := m.cache.FlushAll(ctx); err != nil {
		log.Printf("ledger: flush cache: %v", err)
	}
	items, err := m.db.ListEquipment(store.EquipmentFilter{})
	if err != nil {
		return err
	}
	for _, e := range items {
		if err := m.cache.SetItem(ctx, e); err != nil {
			log.Printf("ledger: cache %s: %v", e.DisplayID, err)
		}
	}
	log.Printf("ledger: synced %d items to redis", len(items))
	return nil
}

func (m *Manager) refreshCacheByID(id int64) {
	e, err := m.db.GetEquipment(id)
	if err != nil {
		log.Printf("ledger: refresh cache for %d: %v", id, err)
		return
	}
	m.checkInvariant(e)
	m.refreshItem(e)
}

func (m *Manager) refreshCache(displayID string) {
	e, err := m.db.GetEquipmentByDisplayID(displayID)
	if err != nil {
		log.Printf("ledger: refresh cache for %s: %v", displayID, err)
		return
	}
	m.refreshItem(e)
}

func (m *Manager) refreshItem(e *store.Equipment) {
	if m.cache == nil {
		return
	}
	if err := m.cache.SetItem(context.Background(), e); err != nil {
		log.Printf("ledger: cache %s: %v", e.DisplayID, err)
	}
}

func (m *Manager) checkInvariant(e *store.Equipment) {
	if v := invariantViolation(e); v != nil {
		log.Printf("ledger: invariant violation on %s: %s", e.DisplayID, v.Detail)
	}
}

func invariantViolation(e *store.Equipment) *Violation {
	switch {
	case e.Status == string(StatusDeployed) && e.JobID == nil:
		return &Violation{EquipmentID: e.ID, DisplayID: e.DisplayID, Status: e.Status, Detail: "deployed with no job claim"}
	case e.Status == string(StatusAvailable) && e.JobID != nil:
		return &Violation{EquipmentID: e.ID, DisplayID: e.DisplayID, Status: e.Status, JobID: e.JobID, Detail: "available but still claimed by a job"}
	}
	return nil
}
