package collection

import (
	"context"
	"fmt"
	"strings"
)

type MetImportRequest struct {
	SearchTerm    string
	DepartmentIDs []int
}

type ImportStats struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

type ImportDetails struct {
	SearchTerm      string `json:"searchTerm"`
	Departments     []int  `json:"departments"`
	TotalFound      int    `json:"totalFound"`
	Processed       int    `json:"processed"`
	NotPublicDomain int    `json:"notPublicDomain"`
	NoImage         int    `json:"noImage"`
	FetchFailed     int    `json:"fetchFailed"`
	PersistFailed   int    `json:"persistFailed"`
}

type ImportResult struct {
	Items   []ItemResponse `json:"items"`
	Stats   ImportStats    `json:"stats"`
	Message string         `json:"message"`
	Details ImportDetails  `json:"details"`
}

// ImportFromMet searches the catalog, fetches up to the import limit of
// matching objects and upserts the usable ones. Only a failed search is
// returned as an error; per-object problems are counted in the result.
func (s *Service) ImportFromMet(ctx context.Context, req MetImportRequest) (*ImportResult, error) {
	q := strings.TrimSpace(req.SearchTerm)
	if q == "" {
		q = "*"
	}
	departments := req.DepartmentIDs
	if departments == nil {
		departments = []int{}
	}

	ids, err := s.catalog.SearchIDs(ctx, q, departments)
	if err != nil {
		s.logger.Error("met search failed", "q", q, "departments", departments, "error", err)
		return nil, fmt.Errorf("search met: %w", err)
	}
	s.logger.Info("met search complete", "q", q, "departments", departments, "found", len(ids))

	res := &ImportResult{
		Items:   []ItemResponse{},
		Details: ImportDetails{SearchTerm: q, Departments: departments, TotalFound: len(ids)},
	}
	if len(ids) == 0 {
		res.Message = "No items found for this search"
		return res, nil
	}

	if len(ids) > s.importLimit {
		ids = ids[:s.importLimit]
	}
	res.Details.Processed = len(ids)

	fetched := s.catalog.FetchObjects(ctx, ids)
	res.Details.FetchFailed = fetched.Failed

	for _, obj := range fetched.Objects {
		item, reason := fromMetObject(obj)
		switch reason {
		case skipNotPublicDomain:
			res.Details.NotPublicDomain++
			continue
		case skipNoImage:
			res.Details.NoImage++
			continue
		}

		outcome, err := s.repo.Upsert(ctx, &item)
		if err != nil {
			res.Details.PersistFailed++
			s.logger.Warn("upsert failed", "external_id", item.ExternalID, "error", err)
			continue
		}
		if outcome == OutcomeCreated {
			res.Stats.New++
		} else {
			res.Stats.Updated++
		}
		res.Items = append(res.Items, ToItemResponse(item))
	}

	res.Stats.Skipped = res.Details.NotPublicDomain + res.Details.NoImage + res.Details.FetchFailed
	res.Message = fmt.Sprintf("Imported %d new, updated %d, skipped %d", res.Stats.New, res.Stats.Updated, res.Stats.Skipped)
	if res.Details.PersistFailed > 0 {
		res.Message += fmt.Sprintf(", failed to save %d", res.Details.PersistFailed)
	}
	s.logger.Info("met import complete",
		"new", res.Stats.New,
		"updated", res.Stats.Updated,
		"not_public_domain", res.Details.NotPublicDomain,
		"no_image", res.Details.NoImage,
		"fetch_failed", res.Details.FetchFailed,
		"persist_failed", res.Details.PersistFailed)
	return res, nil
}
