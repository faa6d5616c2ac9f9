package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"marketplace-engine/internal/geo"
	"marketplace-engine/internal/models"
)

// Sort keys accepted by SearchJobs.
const (
	SortCreatedAt = "created_at"
	SortPrice     = "price"
	SortDistance  = "distance"
)

// SearchFilter is the explicit, conjunctive filter set for job search. All
// fields are optional; zero values mean "no constraint".
type SearchFilter struct {
	Category string
	Status   models.JobStatus
	MinPrice *float64
	MaxPrice *float64
	Skills   []string
	Query    string

	Lat      *float64
	Lng      *float64
	RadiusKm float64

	SortBy   string
	SortDesc bool

	Page  int
	Limit int

	// GeoCandidateLimit caps how many bounding-box rows are loaded before the
	// exact distance pass.
	GeoCandidateLimit int
}

// HasGeo reports whether a usable geo constraint was supplied.
func (f SearchFilter) HasGeo() bool {
	return f.Lat != nil && f.Lng != nil && f.RadiusKm > 0
}

// JobWithDistance pairs a job with its distance from the search origin.
// Distance is nil when the search carried no geo filter.
type JobWithDistance struct {
	models.Job
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// SearchResult is one page of ranked jobs plus pagination metadata.
type SearchResult struct {
	Jobs        []JobWithDistance `json:"jobs"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	Limit       int               `json:"limit"`
	HasNextPage bool              `json:"has_next_page"`
	HasPrevPage bool              `json:"has_prev_page"`
}

// SearchJobs runs a filtered, ranked, paginated query. Without a geo filter
// the ordering and pagination happen in SQL; with one, a bounding-box
// prefilter narrows candidates and the exact haversine distance is applied
// in-process as both predicate and sort key.
func (s *Store) SearchJobs(ctx context.Context, f SearchFilter) (SearchResult, error) {
	f = normalizeFilter(f)

	conds, args := buildConditions(f)
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	if f.HasGeo() {
		return s.searchGeo(ctx, f, where, args)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`+where, args...).Scan(&total); err != nil {
		return SearchResult{}, fmt.Errorf("count jobs: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	query := fmt.Sprintf(`SELECT %s FROM jobs%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		jobColumns, where, sortColumn(f.SortBy), sortDirection(f.SortDesc), f.Limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search jobs: %w", err)
	}
	defer rows.Close()

	results := make([]JobWithDistance, 0, f.Limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return SearchResult{}, fmt.Errorf("scan job: %w", err)
		}
		results = append(results, JobWithDistance{Job: job})
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, fmt.Errorf("iterate jobs: %w", err)
	}

	return paged(results, total, f), nil
}

func (s *Store) searchGeo(ctx context.Context, f SearchFilter, where string, args []any) (SearchResult, error) {
	rows, err := s.pool.Query(ctx, geoCandidateQuery(where, f.GeoCandidateLimit), args...)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search jobs by area: %w", err)
	}
	defer rows.Close()

	matches := make([]JobWithDistance, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return SearchResult{}, fmt.Errorf("scan job: %w", err)
		}
		d := geo.DistanceKm(*f.Lat, *f.Lng, job.Latitude, job.Longitude)
		if d > f.RadiusKm {
			continue
		}
		dist := d
		matches = append(matches, JobWithDistance{Job: job, DistanceKm: &dist})
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, fmt.Errorf("iterate jobs: %w", err)
	}

	sortGeoMatches(matches, f)

	total := len(matches)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return paged(matches[start:end], total, f), nil
}

// geoCandidateQuery loads the bounding-box candidates for the exact distance
// pass. Ordered by recency so the candidate set, and with it the reported
// total, stays stable across identical queries once matches exceed the cap.
func geoCandidateQuery(where string, limit int) string {
	return fmt.Sprintf(`SELECT %s FROM jobs%s ORDER BY created_at DESC LIMIT %d`, jobColumns, where, limit)
}

func sortGeoMatches(matches []JobWithDistance, f SearchFilter) {
	less := func(i, j int) bool { return *matches[i].DistanceKm < *matches[j].DistanceKm }
	switch f.SortBy {
	case SortPrice:
		less = func(i, j int) bool { return matches[i].Price < matches[j].Price }
	case SortCreatedAt:
		less = func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) }
	}
	if f.SortDesc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(matches, less)
}

func buildConditions(f SearchFilter) ([]string, []any) {
	var conds []string
	var args []any
	add := func(expr string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if len(f.Skills) > 0 {
		add("required_skills && $%d", f.Skills)
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.HasGeo() {
		minLat, maxLat, minLng, maxLng := geo.BoundingBox(*f.Lat, *f.Lng, f.RadiusKm)
		add("latitude >= $%d", minLat)
		add("latitude <= $%d", maxLat)
		add("longitude >= $%d", minLng)
		add("longitude <= $%d", maxLng)
	}
	return conds, args
}

func normalizeFilter(f SearchFilter) SearchFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.GeoCandidateLimit <= 0 {
		f.GeoCandidateLimit = 1000
	}
	switch f.SortBy {
	case SortCreatedAt, SortPrice:
	case SortDistance:
		// Distance ordering needs an origin; fall back to recency without one.
		if !f.HasGeo() {
			f.SortBy = SortCreatedAt
			f.SortDesc = true
		}
	default:
		if f.HasGeo() {
			f.SortBy = SortDistance
			f.SortDesc = false
		} else {
			f.SortBy = SortCreatedAt
			f.SortDesc = true
		}
	}
	return f
}

func sortColumn(key string) string {
	switch key {
	case SortPrice:
		return "price"
	default:
		return "created_at"
	}
}

func sortDirection(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

func paged(jobs []JobWithDistance, total int, f SearchFilter) SearchResult {
	return SearchResult{
		Jobs:        jobs,
		Total:       total,
		Page:        f.Page,
		Limit:       f.Limit,
		HasNextPage: f.Page*f.Limit < total,
		HasPrevPage: f.Page > 1,
	}
}
