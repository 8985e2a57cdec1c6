// Package reconcile tracks product identity across scraping runs for one
// source site and turns observations into store mutations.
//
// A Reconciler owns the pre-run snapshot for the whole run. Records are
// mutated in place; the mutation log points at them so a commit always
// writes their latest state. It is not safe for concurrent use, and no
// other writer may touch the same site's rows while a run is open.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

var (
	ErrAlreadyKnown = errors.New("product already known")
	ErrEmptyKey     = errors.New("product url is empty")
	ErrSwept        = errors.New("deletion sweep already ran")
)

type Stats struct {
	Snapshot int
	Created  int
	Reseen   int
	Relisted int
	Deleted  int
}

type Reconciler struct {
	site    string
	runDate time.Time

	rows     map[string]*models.ProductRecord
	snapshot []string
	touched  map[string]bool
	created  []*models.ProductRecord

	mutations []models.Mutation
	stats     Stats
	swept     bool
}

func New(site string, existing []*models.ProductRecord, runDate time.Time) *Reconciler {
	r := &Reconciler{
		site:     site,
		runDate:  runDate,
		rows:     make(map[string]*models.ProductRecord, len(existing)),
		snapshot: make([]string, 0, len(existing)),
		touched:  make(map[string]bool),
	}
	for _, rec := range existing {
		if rec == nil || rec.URL == "" {
			continue
		}
		if _, dup := r.rows[rec.URL]; dup {
			continue
		}
		r.rows[rec.URL] = rec
		r.snapshot = append(r.snapshot, rec.URL)
	}
	r.stats.Snapshot = len(r.snapshot)
	return r
}

func (r *Reconciler) Site() string { return r.site }

// Known reports whether key is in the snapshot or was created this run.
func (r *Reconciler) Known(key string) bool {
	_, ok := r.rows[key]
	return ok
}

// Match confirms a known key without extraction. The first match in a run
// marks the row Existing and bumps its count; later matches of the same key
// change nothing. It returns false for keys it has never seen.
func (r *Reconciler) Match(key string) (*models.ProductRecord, bool) {
	rec, ok := r.rows[key]
	if !ok {
		return nil, false
	}
	if r.touched[key] {
		return rec, true
	}

	previous := rec.Flag
	rec.Flag = models.FlagExisting
	rec.SeenCount++
	rec.RunDate = r.runDate
	r.touched[key] = true

	r.mutations = append(r.mutations, models.Mutation{
		Kind:         models.MutationReseen,
		Record:       rec,
		PreviousFlag: previous,
	})
	r.stats.Reseen++
	if previous == models.FlagDeleted {
		r.stats.Relisted++
	}
	return rec, true
}

// Create registers a product observed for the first time.
func (r *Reconciler) Create(rec *models.ProductRecord) error {
	if rec.URL == "" {
		return ErrEmptyKey
	}
	if r.swept {
		return ErrSwept
	}
	if _, ok := r.rows[rec.URL]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyKnown, rec.URL)
	}

	if rec.SourceSite == "" {
		rec.SourceSite = r.site
	}
	rec.Flag = models.FlagNew
	rec.SeenCount = 1
	rec.RunDate = r.runDate

	r.rows[rec.URL] = rec
	r.touched[rec.URL] = true
	r.created = append(r.created, rec)
	r.mutations = append(r.mutations, models.Mutation{
		Kind:   models.MutationInsert,
		Record: rec,
	})
	r.stats.Created++
	return nil
}

// Sweep marks every snapshot row that was not observed this run as Deleted.
// Keys in pending were never attempted (the run stopped early) and are left
// alone. Rows that are already Deleted produce no mutation. The sweep runs
// once; a second call returns nothing.
func (r *Reconciler) Sweep(pending []string) []models.Mutation {
	if r.swept {
		return nil
	}
	r.swept = true

	skip := make(map[string]bool, len(pending))
	for _, key := range pending {
		skip[key] = true
	}

	var deleted []models.Mutation
	for _, key := range r.snapshot {
		if r.touched[key] || skip[key] {
			continue
		}
		rec := r.rows[key]
		if rec.Flag == models.FlagDeleted {
			continue
		}
		m := models.Mutation{
			Kind:         models.MutationDelete,
			Record:       rec,
			PreviousFlag: rec.Flag,
		}
		rec.Flag = models.FlagDeleted
		deleted = append(deleted, m)
	}

	r.mutations = append(r.mutations, deleted...)
	r.stats.Deleted += len(deleted)
	return deleted
}

// Mutations returns the unit of work accumulated so far, in the order it happened.
func (r *Reconciler) Mutations() []models.Mutation {
	out := make([]models.Mutation, len(r.mutations))
	copy(out, r.mutations)
	return out
}

// Created returns the records first seen in this run.
func (r *Reconciler) Created() []*models.ProductRecord {
	out := make([]*models.ProductRecord, len(r.created))
	copy(out, r.created)
	return out
}

func (r *Reconciler) Stats() Stats { return r.stats }

// Snapshot returns the pre-run rows in load order, with their current state.
func (r *Reconciler) Snapshot() []*models.ProductRecord {
	out := make([]*models.ProductRecord, 0, len(r.snapshot))
	for _, key := range r.snapshot {
		out = append(out, r.rows[key])
	}
	return out
}
