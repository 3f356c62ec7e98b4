package met

import "encoding/json"

type searchResponse struct {
	Total     int   `json:"total"`
	ObjectIDs []int `json:"objectIDs"`
}

type Tag struct {
	Term string `json:"term"`
}

// Object is the subset of a Met object record the importer reads. Raw keeps the
// full response body exactly as received.
type Object struct {
	ObjectID          int             `json:"objectID"`
	Title             string          `json:"title"`
	ArtistDisplayName string          `json:"artistDisplayName"`
	ObjectDate        string          `json:"objectDate"`
	ObjectBeginDate   *int            `json:"objectBeginDate"`
	Medium            string          `json:"medium"`
	Culture           string          `json:"culture"`
	Department        string          `json:"department"`
	PrimaryImage      string          `json:"primaryImage"`
	PrimaryImageSmall string          `json:"primaryImageSmall"`
	AdditionalImages  []string        `json:"additionalImages"`
	IsPublicDomain    bool            `json:"isPublicDomain"`
	Tags              []Tag           `json:"tags"`
	Raw               json.RawMessage `json:"-"`
}

type Department struct {
	DepartmentID int    `json:"departmentId"`
	DisplayName  string `json:"displayName"`
}

type departmentsResponse struct {
	Departments []Department `json:"departments"`
}

// FetchResult holds the objects that were fetched, in request order, plus the
// number of ids whose fetch failed.
type FetchResult struct {
	Objects []Object
	Failed  int
}
