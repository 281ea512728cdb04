package storage

import "sort"

// Journal overlays uncommitted writes on a backing database. Reads see the
// overlay first. Commit applies every write through one batch; Discard drops them.
type Journal struct {
	base    Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewJournal opens an empty overlay on base.
func NewJournal(base Database) *Journal {
	return &Journal{
		base:    base,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (j *Journal) Get(key []byte) ([]byte, error) {
	k := string(key)
	if _, ok := j.deletes[k]; ok {
		return nil, ErrNotFound
	}
	if value, ok := j.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	return j.base.Get(key)
}

func (j *Journal) Put(key []byte, value []byte) error {
	k := string(key)
	delete(j.deletes, k)
	j.writes[k] = append([]byte(nil), value...)
	return nil
}

func (j *Journal) Delete(key []byte) error {
	k := string(key)
	delete(j.writes, k)
	j.deletes[k] = struct{}{}
	return nil
}

// Dirty reports the number of pending writes and deletes.
func (j *Journal) Dirty() int { return len(j.writes) + len(j.deletes) }

// Commit writes the overlay to the backing database atomically and resets it.
func (j *Journal) Commit() error {
	if j.Dirty() == 0 {
		return nil
	}
	batch := j.base.NewBatch()
	keys := make([]string, 0, len(j.writes))
	for k := range j.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		batch.Put([]byte(k), j.writes[k])
	}
	for k := range j.deletes {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	j.Discard()
	return nil
}

// Discard drops all pending writes.
func (j *Journal) Discard() {
	j.writes = make(map[string][]byte)
	j.deletes = make(map[string]struct{})
}
