package bam

import (
	"fmt"
	"sort"
	"strings"
)

// StreamCount splits an archive count into general and texture streams. The
// runtime enforces separate ceilings per stream.
type StreamCount struct {
	General int
	Texture int
}

// Census is a full categorized count of every archive visible to the
// runtime: the base installation tree by category, plus active external
// units split into new content and vanilla replacements. Replacements never
// count toward the totals because they shadow an archive already counted.
type Census struct {
	BaseMain     StreamCount
	DLC          StreamCount
	Optional     StreamCount
	VendorLocked StreamCount
	NewContent   StreamCount
	Replacement  StreamCount

	GeneralTotal int
	TextureTotal int
}

// Per-stream archive-count ceilings enforced by the consuming runtime.
const (
	GeneralArchiveLimit = 255
	TextureArchiveLimit = 254
)

// add increments the stream matching the texture flag.
func (c *StreamCount) add(texture bool) {
	if texture {
		c.Texture++
	} else {
		c.General++
	}
}

// Count produces the archive census. The base tree is scanned flat; the
// external unit tree is scanned recursively and filtered to units active in
// the load order (an empty load order counts every unit).
func (s *Service) Count() (*Census, error) {
	snap, baseArchives, err := s.classificationSnapshot()
	if err != nil {
		return nil, err
	}

	census := &Census{}
	for _, a := range baseArchives {
		c := snap.ClassifyBase(a.Name)
		switch c.Category {
		case CategoryBaseMain:
			census.BaseMain.add(c.Texture)
		case CategoryDLC:
			census.DLC.add(c.Texture)
		case CategoryOptional:
			census.Optional.add(c.Texture)
		case CategoryVendorLocked:
			census.VendorLocked.add(c.Texture)
		}
	}

	active, err := s.activeUnitSet()
	if err != nil {
		return nil, err
	}

	external, err := s.fsmgr.FindArchives(s.layout.ModsDir, true)
	if err != nil {
		return nil, fmt.Errorf("scanning unit tree: %w", err)
	}
	for _, a := range external {
		if active != nil && !active[strings.ToLower(a.Unit)] {
			continue
		}
		c := snap.ClassifyExternal(a.Name)
		if c.Category == CategoryReplacement {
			census.Replacement.add(c.Texture)
			continue
		}
		census.NewContent.add(c.Texture)
	}

	census.GeneralTotal = census.BaseMain.General + census.DLC.General +
		census.Optional.General + census.VendorLocked.General + census.NewContent.General
	census.TextureTotal = census.BaseMain.Texture + census.DLC.Texture +
		census.Optional.Texture + census.VendorLocked.Texture + census.NewContent.Texture
	return census, nil
}

// UnitInventory describes one external unit's archive holdings.
type UnitInventory struct {
	Unit        string
	Rank        int // -1 when the unit is not in the load order
	HasGeneral  bool
	HasTexture  bool
	Archives    int
	TotalSize   int64
	HasSnapshot bool
}

// List returns the per-unit archive inventory for every active external
// unit that holds at least one archive, ordered by precedence.
func (s *Service) List() ([]UnitInventory, error) {
	order, err := s.LoadOrder()
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(order))
	for _, e := range order {
		rank[strings.ToLower(e.Name)] = e.Rank
	}

	active, err := s.activeUnitSet()
	if err != nil {
		return nil, err
	}

	archives, err := s.fsmgr.FindArchives(s.layout.ModsDir, true)
	if err != nil {
		return nil, fmt.Errorf("scanning unit tree: %w", err)
	}

	snapshotted, err := s.snapshottedUnits()
	if err != nil {
		return nil, err
	}

	byUnit := map[string]*UnitInventory{}
	for _, a := range archives {
		if a.Unit == "" {
			continue
		}
		key := strings.ToLower(a.Unit)
		if active != nil && !active[key] {
			continue
		}
		inv := byUnit[key]
		if inv == nil {
			r, ok := rank[key]
			if !ok {
				r = -1
			}
			inv = &UnitInventory{Unit: a.Unit, Rank: r, HasSnapshot: snapshotted[key]}
			byUnit[key] = inv
		}
		if IsTexture(a.Name) {
			inv.HasTexture = true
		} else {
			inv.HasGeneral = true
		}
		inv.Archives++
		inv.TotalSize += a.Size
	}

	units := make([]UnitInventory, 0, len(byUnit))
	for _, inv := range byUnit {
		units = append(units, *inv)
	}
	sort.Slice(units, func(i, j int) bool {
		ri, rj := units[i].Rank, units[j].Rank
		if ri != rj {
			// Unranked units sort last.
			if ri == -1 {
				return false
			}
			if rj == -1 {
				return true
			}
			return ri < rj
		}
		return strings.ToLower(units[i].Unit) < strings.ToLower(units[j].Unit)
	})
	return units, nil
}

// UnitStatus reports the on-disk state of a merged unit.
type UnitStatus struct {
	Unit       string
	Present    bool
	Archives   []ArchiveInfo
	Stubs      []string
	Snapshots  []*Snapshot
	Registered bool
}

// Status inspects one unit: whether its directory exists, its archives and
// loader stubs, its load-order registration and any retained snapshots.
func (s *Service) Status(unit string) (*UnitStatus, error) {
	status := &UnitStatus{Unit: unit}

	if _, err := s.fsmgr.Stat(s.layout.UnitDir(unit)); err == nil {
		status.Present = true
		archives, err := s.fsmgr.FindArchives(s.layout.UnitDir(unit), false)
		if err != nil {
			return nil, fmt.Errorf("scanning unit %s: %w", unit, err)
		}
		status.Archives = archives

		stubs, err := s.unitStubs(s.layout.UnitDir(unit))
		if err != nil {
			return nil, err
		}
		status.Stubs = stubs
	}

	order, err := s.LoadOrder()
	if err != nil {
		return nil, err
	}
	for _, e := range order {
		if strings.EqualFold(e.Name, unit) {
			status.Registered = true
			break
		}
	}

	records, err := s.database.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing snapshot records: %w", err)
	}
	for _, rec := range records {
		if rec.Discarded || !strings.EqualFold(rec.Unit, unit) {
			continue
		}
		snap, err := s.snapshots.Get(rec.ID)
		if err != nil {
			s.logger.Warn("snapshot record without bundle", "id", rec.ID)
			continue
		}
		status.Snapshots = append(status.Snapshots, snap)
	}
	return status, nil
}

// activeUnitSet returns the lowercased names of units active in the load
// order, or nil when the priority list is missing and every unit counts.
func (s *Service) activeUnitSet() (map[string]bool, error) {
	order, err := s.LoadOrder()
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}
	active := make(map[string]bool, len(order))
	for _, e := range order {
		active[strings.ToLower(e.Name)] = true
	}
	return active, nil
}

// snapshottedUnits returns the lowercased unit names with a retained
// snapshot.
func (s *Service) snapshottedUnits() (map[string]bool, error) {
	records, err := s.database.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing snapshot records: %w", err)
	}
	units := map[string]bool{}
	for _, rec := range records {
		if !rec.Discarded {
			units[strings.ToLower(rec.Unit)] = true
		}
	}
	return units, nil
}
