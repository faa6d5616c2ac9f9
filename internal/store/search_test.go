package store

import (
	"strings"
	"testing"
	"time"

	"marketplace-engine/internal/models"
)

func f64(v float64) *float64 { return &v }

func TestBuildConditionsEmptyFilter(t *testing.T) {
	conds, args := buildConditions(SearchFilter{})
	if len(conds) != 0 || len(args) != 0 {
		t.Fatalf("expected no conditions, got %v / %v", conds, args)
	}
}

func TestBuildConditionsAreConjunctiveAndParameterized(t *testing.T) {
	f := SearchFilter{
		Category: "cleaning",
		Status:   models.JobOpen,
		MinPrice: f64(10),
		MaxPrice: f64(200),
		Skills:   []string{"mopping", "windows"},
		Query:    "deep clean",
	}
	conds, args := buildConditions(f)

	if len(conds) != 6 {
		t.Fatalf("expected 6 conditions, got %d: %v", len(conds), conds)
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d: %v", len(args), args)
	}
	joined := strings.Join(conds, " AND ")
	for _, want := range []string{"category = $1", "status = $2", "price >= $3", "price <= $4", "required_skills && $5", "ILIKE $6"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
	// The free-text value is parameterized, never inlined.
	if strings.Contains(joined, "deep clean") {
		t.Fatalf("query text leaked into SQL: %q", joined)
	}
	if args[5] != "%deep clean%" {
		t.Fatalf("expected wrapped like pattern, got %v", args[5])
	}
}

func TestBuildConditionsGeoAddsBoundingBox(t *testing.T) {
	f := SearchFilter{Lat: f64(37.7749), Lng: f64(-122.4194), RadiusKm: 10}
	conds, args := buildConditions(f)
	if len(conds) != 4 || len(args) != 4 {
		t.Fatalf("expected 4 bounding-box conditions, got %v", conds)
	}
	minLat := args[0].(float64)
	maxLat := args[1].(float64)
	if minLat >= 37.7749 || maxLat <= 37.7749 {
		t.Fatalf("bounding box does not bracket the origin latitude: [%f, %f]", minLat, maxLat)
	}
}

func TestNormalizeFilterClampsPagination(t *testing.T) {
	f := normalizeFilter(SearchFilter{Page: 0, Limit: 500})
	if f.Page != 1 {
		t.Fatalf("expected page 1, got %d", f.Page)
	}
	if f.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", f.Limit)
	}

	f = normalizeFilter(SearchFilter{Limit: -3})
	if f.Limit != 20 {
		t.Fatalf("expected default limit 20, got %d", f.Limit)
	}
}

func TestNormalizeFilterSortDefaults(t *testing.T) {
	f := normalizeFilter(SearchFilter{})
	if f.SortBy != SortCreatedAt || !f.SortDesc {
		t.Fatalf("expected createdAt desc default, got %s desc=%v", f.SortBy, f.SortDesc)
	}

	// Distance sorting without an origin falls back to recency.
	f = normalizeFilter(SearchFilter{SortBy: SortDistance})
	if f.SortBy != SortCreatedAt || !f.SortDesc {
		t.Fatalf("expected recency fallback, got %s desc=%v", f.SortBy, f.SortDesc)
	}

	// With an origin, an unspecified sort becomes nearest-first.
	f = normalizeFilter(SearchFilter{Lat: f64(37.0), Lng: f64(-122.0), RadiusKm: 5})
	if f.SortBy != SortDistance || f.SortDesc {
		t.Fatalf("expected distance asc for geo search, got %s desc=%v", f.SortBy, f.SortDesc)
	}
}

func TestSortGeoMatches(t *testing.T) {
	mk := func(id string, dist, price float64, created time.Time) JobWithDistance {
		return JobWithDistance{
			Job:        models.Job{ID: id, Price: price, CreatedAt: created},
			DistanceKm: &dist,
		}
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	matches := []JobWithDistance{
		mk("far", 30, 10, base),
		mk("near", 1, 50, base.Add(time.Hour)),
		mk("mid", 12, 25, base.Add(2*time.Hour)),
	}

	sortGeoMatches(matches, SearchFilter{SortBy: SortDistance})
	if matches[0].ID != "near" || matches[2].ID != "far" {
		t.Fatalf("distance sort wrong: %s %s %s", matches[0].ID, matches[1].ID, matches[2].ID)
	}

	sortGeoMatches(matches, SearchFilter{SortBy: SortPrice, SortDesc: true})
	if matches[0].ID != "near" || matches[2].ID != "far" {
		t.Fatalf("price desc sort wrong: %s %s %s", matches[0].ID, matches[1].ID, matches[2].ID)
	}

	sortGeoMatches(matches, SearchFilter{SortBy: SortCreatedAt})
	if matches[0].ID != "far" {
		t.Fatalf("created_at asc sort wrong: %s first", matches[0].ID)
	}
}

func TestPagedMetadata(t *testing.T) {
	f := SearchFilter{Page: 2, Limit: 10}
	res := paged(nil, 25, f)
	if !res.HasNextPage || !res.HasPrevPage {
		t.Fatalf("page 2 of 25/10 should have both neighbors: %+v", res)
	}

	res = paged(nil, 25, SearchFilter{Page: 3, Limit: 10})
	if res.HasNextPage || !res.HasPrevPage {
		t.Fatalf("page 3 of 25/10 should be the last page: %+v", res)
	}

	res = paged(nil, 5, SearchFilter{Page: 1, Limit: 10})
	if res.HasNextPage || res.HasPrevPage {
		t.Fatalf("single page should have no neighbors: %+v", res)
	}
}

func TestGeoCandidateQueryIsDeterministic(t *testing.T) {
	q := geoCandidateQuery(" WHERE latitude >= $1", 1000)
	// The prefilter must carry an ordering so the candidate set is stable
	// when the bounding box holds more rows than the cap.
	if !strings.Contains(q, "ORDER BY created_at DESC LIMIT 1000") {
		t.Fatalf("candidate query lacks a deterministic order: %q", q)
	}
	if !strings.Contains(q, "WHERE latitude >= $1") {
		t.Fatalf("candidate query dropped the filter: %q", q)
	}
}

func TestSortColumnWhitelist(t *testing.T) {
	if sortColumn(SortPrice) != "price" {
		t.Fatal("price should map to price")
	}
	// Anything else, including hostile input, falls back to created_at.
	if sortColumn("price; DROP TABLE jobs") != "created_at" {
		t.Fatal("unknown sort keys must fall back to created_at")
	}
}
