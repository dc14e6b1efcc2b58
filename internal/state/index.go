package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/containust/containust/internal/ctsterr"
)

// Index is the durable record of every container known to one project. It is
// backed by a single JSON file and guarded by a sibling Lock; every mutating
// method acquires the lock, reads the current file, applies the change, and
// writes it back via a temp-file-then-rename so a crash mid-write never
// leaves a half-written index behind.
type Index struct {
	path string
	lock *Lock
}

const lockTimeout = 10 * time.Second

// OpenIndex returns an Index backed by the JSON file at path. A missing
// file reads as an empty index and is written by the first mutating call;
// it is not read until a method is called.
func OpenIndex(path string) *Index {
	return &Index{path: path, lock: NewLock(path + ".lock")}
}

// Insert adds rec to the index. rec.ID must be unique; Insert does not
// itself enforce this beyond what the caller already guarantees (container
// IDs are generated, not user-supplied).
func (ix *Index) Insert(rec Record) error {
	return ix.mutate(func(records []Record) []Record {
		return append(records, rec)
	})
}

// Update applies newState and pid to the record with the given id and bumps
// its UpdatedAt. It is a no-op if no record with that id exists.
func (ix *Index) Update(id string, newState ContainerState, pid int) error {
	return ix.mutate(func(records []Record) []Record {
		for i := range records {
			if records[i].ID == id {
				records[i].State = newState
				records[i].PID = pid
				records[i].UpdatedAt = time.Now()
			}
		}
		return records
	})
}

// Remove deletes the record with the given id, if present.
func (ix *Index) Remove(id string) error {
	return ix.mutate(func(records []Record) []Record {
		out := records[:0]
		for _, r := range records {
			if r.ID != id {
				out = append(out, r)
			}
		}
		return out
	})
}

// List returns every record currently in the index.
func (ix *Index) List() ([]Record, error) {
	if err := ix.lock.Acquire(lockTimeout); err != nil {
		return nil, err
	}
	defer ix.lock.Release()

	return ix.load()
}

// FindByNameOrPrefix resolves ref against every record's exact Name first,
// then against an unambiguous ID prefix of at least 8 characters. Two or
// more ID matches for the same prefix is reported via
// ctsterr.AmbiguousReference; zero matches returns ctsterr.NotFound.
func (ix *Index) FindByNameOrPrefix(ref string) (Record, error) {
	records, err := ix.List()
	if err != nil {
		return Record{}, err
	}

	for _, r := range records {
		if r.Name == ref {
			return r, nil
		}
	}

	if len(ref) >= 8 {
		var matches []Record
		for _, r := range records {
			if strings.HasPrefix(r.ID, ref) {
				matches = append(matches, r)
			}
		}
		switch len(matches) {
		case 1:
			return matches[0], nil
		case 0:
			// fall through to the not-found error below.
		default:
			ids := make([]string, len(matches))
			for i, m := range matches {
				ids[i] = m.ID
			}
			return Record{}, ctsterr.AmbiguousReference(ref, ids)
		}
	}

	return Record{}, ctsterr.ContainerNotFound(ref)
}

// mutate acquires the lock, loads the current records, applies fn, and
// persists the result atomically before releasing the lock.
func (ix *Index) mutate(fn func([]Record) []Record) error {
	if err := ix.lock.Acquire(lockTimeout); err != nil {
		return err
	}
	defer ix.lock.Release()

	records, err := ix.load()
	if err != nil {
		return err
	}

	records = fn(records)
	return ix.save(records)
}

// indexVersion is the current on-disk schema version written to every
// state index file's "version" field.
const indexVersion = 1

// indexFile is the on-disk shape of the state index: a versioned envelope
// around the container records, per spec.md §6.
type indexFile struct {
	Version    int      `json:"version"`
	Containers []Record `json:"containers"`
}

func (ix *Index) load() ([]Record, error) {
	data, err := os.ReadFile(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ctsterr.IOFailure(ix.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, ctsterr.StateCorrupt(ix.path, err)
	}
	return file.Containers, nil
}

// save writes records to a temp file in the same directory as ix.path and
// renames it into place, so readers never observe a partially written file.
func (ix *Index) save(records []Record) error {
	data, err := json.MarshalIndent(indexFile{Version: indexVersion, Containers: records}, "", "  ")
	if err != nil {
		return ctsterr.Wrap(err, ctsterr.CategorySerialization, ctsterr.CodeStateCorrupt, "failed to encode state index")
	}

	dir := filepath.Dir(ix.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return ctsterr.IOFailure(dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ctsterr.IOFailure(tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ctsterr.IOFailure(tmpPath, err)
	}

	if err := os.Rename(tmpPath, ix.path); err != nil {
		os.Remove(tmpPath)
		return ctsterr.IOFailure(ix.path, err)
	}
	return nil
}
